package roles

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/authz"
	"github.com/ledgerline/ledgerline/internal/platform/db"
	"github.com/ledgerline/ledgerline/internal/shared"
)

const uniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence for role definitions.
// Permissions are stored as JSONB and pass through the normalization
// boundary on every read.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const roleColumns = `id, company_id, name, role_type, description, permissions, is_default, created_at, updated_at`

// GetByID fetches a role definition by id.
func (r *Repository) GetByID(ctx context.Context, id int64) (*authz.RoleDefinition, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM role_definitions WHERE id = $1`, id)
	return scanRole(row)
}

// GetByName fetches a role definition by tenant and name.
func (r *Repository) GetByName(ctx context.Context, companyID int64, name string) (*authz.RoleDefinition, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM role_definitions WHERE company_id = $1 AND LOWER(name) = LOWER($2)`, companyID, name)
	return scanRole(row)
}

// ListByCompany returns all role definitions for a tenant ordered by name.
func (r *Repository) ListByCompany(ctx context.Context, companyID int64) ([]authz.RoleDefinition, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM role_definitions WHERE company_id = $1 ORDER BY name`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []authz.RoleDefinition
	for rows.Next() {
		def, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, *def)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return defs, nil
}

// DefaultForCompany returns the tenant's auto-assignable role, if any.
func (r *Repository) DefaultForCompany(ctx context.Context, companyID int64) (*authz.RoleDefinition, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM role_definitions WHERE company_id = $1 AND is_default LIMIT 1`, companyID)
	return scanRole(row)
}

// Create inserts a new role definition.
func (r *Repository) Create(ctx context.Context, def *authz.RoleDefinition) (*authz.RoleDefinition, error) {
	perms, err := marshalPermissions(def.Permissions)
	if err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO role_definitions (company_id, name, role_type, description, permissions, is_default)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+roleColumns,
		def.CompanyID, def.Name, string(def.RoleType), def.Description, perms, def.IsDefault)
	created, err := scanRole(row)
	if err != nil {
		return nil, mapConflict(err)
	}
	return created, nil
}

// Update replaces a role definition's mutable fields.
func (r *Repository) Update(ctx context.Context, def *authz.RoleDefinition) (*authz.RoleDefinition, error) {
	perms, err := marshalPermissions(def.Permissions)
	if err != nil {
		return nil, err
	}
	row := r.pool.QueryRow(ctx,
		`UPDATE role_definitions
		 SET name = $2, role_type = $3, description = $4, permissions = $5, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+roleColumns,
		def.ID, def.Name, string(def.RoleType), def.Description, perms)
	updated, err := scanRole(row)
	if err != nil {
		return nil, mapConflict(err)
	}
	return updated, nil
}

// Delete removes a role definition.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM role_definitions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetDefault marks one role as the tenant's default, clearing any previous
// default in the same transaction.
func (r *Repository) SetDefault(ctx context.Context, companyID, roleID int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE role_definitions SET is_default = FALSE WHERE company_id = $1 AND is_default`, companyID); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `UPDATE role_definitions SET is_default = TRUE WHERE company_id = $1 AND id = $2`, companyID, roleID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRole(row rowScanner) (*authz.RoleDefinition, error) {
	var (
		def       authz.RoleDefinition
		roleType  string
		rawPerms  []byte
		createdAt time.Time
		updatedAt time.Time
	)
	err := row.Scan(&def.ID, &def.CompanyID, &def.Name, &roleType, &def.Description, &rawPerms, &def.IsDefault, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	def.RoleType = authz.RoleType(roleType)
	def.Permissions = authz.NormalizePermissions(rawPerms)
	def.CreatedAt = createdAt
	def.UpdatedAt = updatedAt
	return &def, nil
}

func marshalPermissions(set authz.PermissionSet) ([]byte, error) {
	return json.Marshal(set.List())
}

func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return shared.ErrDuplicate
	}
	return err
}
