package users

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ledgerline/ledgerline/internal/audit"
	"github.com/ledgerline/ledgerline/internal/authz"
	"github.com/ledgerline/ledgerline/internal/store"
)

// Service manages the accounts of a tenant. All reads and writes go through
// the tenant-scoped store, so an administrator of one company can never see
// or touch another company's accounts.
type Service struct {
	backend    store.Store
	eval       *authz.Evaluator
	recorder   audit.Recorder
	logger     *slog.Logger
	violations store.ViolationHook
}

// NewService builds a Service instance.
func NewService(backend store.Store, eval *authz.Evaluator, recorder audit.Recorder, logger *slog.Logger) *Service {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &Service{backend: backend, eval: eval, recorder: recorder, logger: logger}
}

// WithViolationHook forwards blocked cross-tenant accesses, typically into a
// metrics counter.
func (s *Service) WithViolationHook(hook store.ViolationHook) *Service {
	s.violations = hook
	return s
}

func (s *Service) scoped(id *authz.AuthContext) *store.Scoped {
	return store.NewScoped(s.backend, id, s.logger).WithViolationHook(s.violations).WithAuditHook(func(ctx context.Context, id *authz.AuthContext, op, collection string) {
		s.recorder.Record(ctx, audit.Event{
			ActorID:   id.UserID,
			CompanyID: id.CompanyID,
			Role:      id.Role,
			Action:    op,
			Entity:    collection,
			Decision:  audit.DecisionBypass,
		})
	})
}

func (s *Service) requireManage(ctx context.Context, id *authz.AuthContext) error {
	err := s.eval.CheckerFor(id).Require(authz.PermManageUsers)
	if err != nil {
		s.recorder.Record(ctx, audit.Event{
			ActorID:   id.UserID,
			CompanyID: id.CompanyID,
			Role:      id.Role,
			Action:    string(authz.PermManageUsers),
			Entity:    Collection,
			Decision:  audit.DecisionDenied,
		})
	}
	return err
}

// List returns the caller's tenant accounts.
func (s *Service) List(ctx context.Context, id *authz.AuthContext) ([]User, error) {
	if err := s.requireManage(ctx, id); err != nil {
		return nil, err
	}
	recs, err := s.scoped(id).Select(ctx, Collection, nil)
	if err != nil {
		return nil, err
	}
	out := make([]User, 0, len(recs))
	for _, rec := range recs {
		out = append(out, fromRecord(rec))
	}
	return out, nil
}

// Get fetches one account visible to the caller.
func (s *Service) Get(ctx context.Context, id *authz.AuthContext, userID int64) (*User, error) {
	if err := s.requireManage(ctx, id); err != nil {
		return nil, err
	}
	rec, err := s.scoped(id).SelectOne(ctx, Collection, userID)
	if err != nil {
		return nil, err
	}
	u := fromRecord(rec)
	return &u, nil
}

// requireGrantable refuses role names that would mint a global admin unless
// the caller already is one. Without this, manage_users alone would be enough
// to promote an account past every tenant boundary.
func (s *Service) requireGrantable(ctx context.Context, id *authz.AuthContext, role string) error {
	if !authz.IsGlobalAdminRole(role) || id.IsGlobalAdmin() {
		return nil
	}
	s.recorder.Record(ctx, audit.Event{
		ActorID:   id.UserID,
		CompanyID: id.CompanyID,
		Role:      id.Role,
		Action:    "grant_role",
		Entity:    Collection,
		Decision:  audit.DecisionDenied,
		Meta:      map[string]any{"role": role},
	})
	return ErrRoleEscalation
}

// Create provisions a new account in the caller's tenant. Unknown role names
// fall back to baseline permissions at evaluation time; admin role names are
// reserved for global administrators.
func (s *Service) Create(ctx context.Context, id *authz.AuthContext, u User, password string) (*User, error) {
	if err := s.requireManage(ctx, id); err != nil {
		return nil, err
	}
	if err := s.requireGrantable(ctx, id, u.Role); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.PasswordHash = string(hash)
	if u.Status == "" {
		u.Status = authz.StatusPending
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	rec, err := s.scoped(id).Insert(ctx, Collection, toRecord(u))
	if err != nil {
		return nil, err
	}
	created := fromRecord(rec)
	s.recorder.Record(ctx, audit.Event{
		ActorID:   id.UserID,
		CompanyID: created.CompanyID,
		Role:      id.Role,
		Action:    "create",
		Entity:    Collection,
		EntityID:  strconv.FormatInt(created.ID, 10),
		Decision:  audit.DecisionAllowed,
	})
	return &created, nil
}

// AssignRole changes an account's role. Role changes are always audited:
// they alter what the account can do everywhere else. Promotion to a global
// admin role is only open to callers who already hold one.
func (s *Service) AssignRole(ctx context.Context, id *authz.AuthContext, userID int64, role string) (*User, error) {
	if err := s.requireManage(ctx, id); err != nil {
		return nil, err
	}
	if err := s.requireGrantable(ctx, id, role); err != nil {
		return nil, err
	}
	rec, err := s.scoped(id).Update(ctx, Collection, userID, store.Record{"role": role})
	if err != nil {
		return nil, err
	}
	updated := fromRecord(rec)
	s.recorder.Record(ctx, audit.Event{
		ActorID:   id.UserID,
		CompanyID: updated.CompanyID,
		Role:      id.Role,
		Action:    "assign_role",
		Entity:    Collection,
		EntityID:  strconv.FormatInt(userID, 10),
		Decision:  audit.DecisionAllowed,
		Meta:      map[string]any{"role": role},
	})
	return &updated, nil
}

// SetStatus activates or deactivates an account. Deactivated accounts are
// rejected at authentication, not here.
func (s *Service) SetStatus(ctx context.Context, id *authz.AuthContext, userID int64, status authz.Status) (*User, error) {
	if err := s.requireManage(ctx, id); err != nil {
		return nil, err
	}
	rec, err := s.scoped(id).Update(ctx, Collection, userID, store.Record{"status": string(status)})
	if err != nil {
		return nil, err
	}
	updated := fromRecord(rec)
	s.recorder.Record(ctx, audit.Event{
		ActorID:   id.UserID,
		CompanyID: updated.CompanyID,
		Role:      id.Role,
		Action:    "set_status",
		Entity:    Collection,
		EntityID:  strconv.FormatInt(userID, 10),
		Decision:  audit.DecisionAllowed,
		Meta:      map[string]any{"status": string(status)},
	})
	return &updated, nil
}

// Delete removes an account from the caller's tenant. Self-deletion is
// refused so a tenant cannot lock itself out of user management.
func (s *Service) Delete(ctx context.Context, id *authz.AuthContext, userID int64) error {
	if err := s.requireManage(ctx, id); err != nil {
		return err
	}
	if id.UserID == userID {
		return ErrSelfDeletion
	}
	if err := s.scoped(id).Delete(ctx, Collection, userID); err != nil {
		return err
	}
	s.recorder.Record(ctx, audit.Event{
		ActorID:   id.UserID,
		CompanyID: id.CompanyID,
		Role:      id.Role,
		Action:    "delete",
		Entity:    Collection,
		EntityID:  strconv.FormatInt(userID, 10),
		Decision:  audit.DecisionAllowed,
	})
	return nil
}
