package users

import (
	"time"

	"github.com/ledgerline/ledgerline/internal/authz"
	"github.com/ledgerline/ledgerline/internal/store"
)

// Collection is the record store collection users live in.
const Collection = "users"

// User is one account visible to tenant administration. The password hash
// never leaves this package.
type User struct {
	ID           int64
	CompanyID    int64
	Email        string
	Role         string
	Status       authz.Status
	PasswordHash string
	CreatedAt    time.Time
}

func toRecord(u User) store.Record {
	return store.Record{
		"email":         u.Email,
		"role":          u.Role,
		"status":        string(u.Status),
		"password_hash": u.PasswordHash,
		"created_at":    u.CreatedAt,
	}
}

func fromRecord(rec store.Record) User {
	u := User{
		Email: asString(rec["email"]),
		Role:  asString(rec["role"]),
	}
	u.Status = authz.Status(asString(rec["status"]))
	u.PasswordHash = asString(rec["password_hash"])
	if v, ok := rec["id"].(int64); ok {
		u.ID = v
	}
	if v, ok := rec[store.TenantField].(int64); ok {
		u.CompanyID = v
	}
	if v, ok := rec["created_at"].(time.Time); ok {
		u.CreatedAt = v
	}
	return u
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
