package auth

import (
	"time"

	"github.com/ledgerline/ledgerline/internal/authz"
)

// User represents an authenticated user account.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Role         string
	CompanyID    int64
	Status       authz.Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
