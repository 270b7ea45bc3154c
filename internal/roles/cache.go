package roles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ledgerline/ledgerline/internal/authz"
)

// Cache stores resolved role definitions in Redis. Callers invalidate on
// every role mutation; the TTL only bounds staleness after missed
// invalidations.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a role definition cache.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

type cachedRole struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	RoleType    string    `json:"role_type"`
	Description string    `json:"description"`
	Permissions []string  `json:"permissions"`
	CompanyID   int64     `json:"company_id"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func cacheKey(companyID int64, name string) string {
	return fmt.Sprintf("roles:def:%d:%s", companyID, strings.ToLower(name))
}

// Get returns the cached definition, or nil on miss or decode failure.
func (c *Cache) Get(ctx context.Context, companyID int64, name string) *authz.RoleDefinition {
	if c == nil || c.client == nil {
		return nil
	}
	payload, err := c.client.Get(ctx, cacheKey(companyID, name)).Bytes()
	if err != nil {
		return nil
	}
	var stored cachedRole
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil
	}
	return &authz.RoleDefinition{
		ID:          stored.ID,
		Name:        stored.Name,
		RoleType:    authz.RoleType(stored.RoleType),
		Description: stored.Description,
		Permissions: authz.NormalizePermissions(stored.Permissions),
		CompanyID:   stored.CompanyID,
		IsDefault:   stored.IsDefault,
		CreatedAt:   stored.CreatedAt,
		UpdatedAt:   stored.UpdatedAt,
	}
}

// Set stores a definition.
func (c *Cache) Set(ctx context.Context, def *authz.RoleDefinition) error {
	if c == nil || c.client == nil || def == nil {
		return nil
	}
	perms := make([]string, 0, len(def.Permissions))
	for _, p := range def.Permissions.List() {
		perms = append(perms, string(p))
	}
	payload, err := json.Marshal(cachedRole{
		ID:          def.ID,
		Name:        def.Name,
		RoleType:    string(def.RoleType),
		Description: def.Description,
		Permissions: perms,
		CompanyID:   def.CompanyID,
		IsDefault:   def.IsDefault,
		CreatedAt:   def.CreatedAt,
		UpdatedAt:   def.UpdatedAt,
	})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(def.CompanyID, def.Name), payload, c.ttl).Err()
}

// Invalidate drops a cached definition.
func (c *Cache) Invalidate(ctx context.Context, companyID int64, name string) error {
	if c == nil || c.client == nil {
		return nil
	}
	err := c.client.Del(ctx, cacheKey(companyID, name)).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
