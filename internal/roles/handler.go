package roles

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ledgerline/ledgerline/internal/authz"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Handler manages role definition endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	guard    authz.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Middleware) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		guard:    guard,
	}
}

// MountRoutes registers role definition routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequirePermission(authz.PermManageRoles))
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Put("/{roleID}", h.update)
		r.Delete("/{roleID}", h.delete)
		r.Post("/{roleID}/default", h.setDefault)
	})
}

type roleRequest struct {
	Name        string   `json:"name" validate:"required,min=2,max=64"`
	RoleType    string   `json:"role_type" validate:"required,oneof=admin super_admin accountant stock_manager user"`
	Description string   `json:"description" validate:"max=255"`
	Permissions []string `json:"permissions"`
}

type roleResponse struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	RoleType    string   `json:"role_type"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
	CompanyID   int64    `json:"company_id"`
	IsDefault   bool     `json:"is_default"`
}

func toResponse(def *authz.RoleDefinition) roleResponse {
	perms := make([]string, 0, len(def.Permissions))
	for _, p := range def.Permissions.List() {
		perms = append(perms, string(p))
	}
	return roleResponse{
		ID:          def.ID,
		Name:        def.Name,
		RoleType:    string(def.RoleType),
		Description: def.Description,
		Permissions: perms,
		CompanyID:   def.CompanyID,
		IsDefault:   def.IsDefault,
	}
}

// targetCompany resolves which tenant's roles are being managed. Tenant
// admins operate on their own company; global admins without one name the
// target through the company_id query parameter.
func targetCompany(r *http.Request, id *authz.AuthContext) (int64, error) {
	if id.CompanyID != 0 {
		return id.CompanyID, nil
	}
	raw := r.URL.Query().Get("company_id")
	if raw == "" {
		return 0, errors.New("company_id required")
	}
	return strconv.ParseInt(raw, 10, 64)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	id := authz.IdentityFromContext(r.Context())
	companyID, err := targetCompany(r, id)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	defs, err := h.service.List(r.Context(), companyID)
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]roleResponse, 0, len(defs))
	for i := range defs {
		out = append(out, toResponse(&defs[i]))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	id := authz.IdentityFromContext(r.Context())
	companyID, err := targetCompany(r, id)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if !h.canGrantType(id, req.RoleType) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "admin role types are reserved for global administrators")
		return
	}
	def := &authz.RoleDefinition{
		Name:        req.Name,
		RoleType:    authz.RoleType(req.RoleType),
		Description: req.Description,
		Permissions: authz.NormalizePermissions(req.Permissions),
		CompanyID:   companyID,
	}
	created, err := h.service.Create(r.Context(), def)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			httpx.Problem(w, http.StatusConflict, "Duplicate", "role name already exists for this company")
			return
		}
		h.logger.Error("create role", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(created))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id := authz.IdentityFromContext(r.Context())
	roleID, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid role id")
		return
	}
	existing, err := h.service.Get(r.Context(), roleID)
	if err != nil {
		httpx.RespondError(w, mapNotFound(err))
		return
	}
	if !h.canManage(r, id, existing.CompanyID) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "role not found")
		return
	}
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if !h.canGrantType(id, req.RoleType) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "admin role types are reserved for global administrators")
		return
	}
	existing.Name = req.Name
	existing.RoleType = authz.RoleType(req.RoleType)
	existing.Description = req.Description
	existing.Permissions = authz.NormalizePermissions(req.Permissions)
	updated, err := h.service.Update(r.Context(), existing)
	if err != nil {
		h.logger.Error("update role", slog.Any("error", err))
		httpx.RespondError(w, mapNotFound(err))
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(updated))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id := authz.IdentityFromContext(r.Context())
	roleID, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid role id")
		return
	}
	existing, err := h.service.Get(r.Context(), roleID)
	if err != nil {
		httpx.RespondError(w, mapNotFound(err))
		return
	}
	if !h.canManage(r, id, existing.CompanyID) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "role not found")
		return
	}
	if err := h.service.Delete(r.Context(), roleID); err != nil {
		h.logger.Error("delete role", slog.Any("error", err))
		httpx.RespondError(w, mapNotFound(err))
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) setDefault(w http.ResponseWriter, r *http.Request) {
	id := authz.IdentityFromContext(r.Context())
	roleID, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid role id")
		return
	}
	existing, err := h.service.Get(r.Context(), roleID)
	if err != nil {
		httpx.RespondError(w, mapNotFound(err))
		return
	}
	if !h.canManage(r, id, existing.CompanyID) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "role not found")
		return
	}
	if err := h.service.SetDefault(r.Context(), existing.CompanyID, roleID); err != nil {
		h.logger.Error("set default role", slog.Any("error", err))
		httpx.RespondError(w, mapNotFound(err))
		return
	}
	httpx.NoContent(w)
}

// canManage confirms the role belongs to the caller's tenant. Mismatches
// read as not-found so that role existence never leaks across tenants.
func (h *Handler) canManage(r *http.Request, id *authz.AuthContext, companyID int64) bool {
	if id.IsGlobalAdmin() {
		return true
	}
	return id.CompanyID == companyID
}

// canGrantType refuses the admin role types for tenant callers. A definition
// carrying an admin type hands out the full permission universe, so writing
// one stays a global-admin operation.
func (h *Handler) canGrantType(id *authz.AuthContext, roleType string) bool {
	if !authz.IsGlobalAdminRole(roleType) {
		return true
	}
	return id.IsGlobalAdmin()
}

func mapNotFound(err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return httpx.ErrNotFound
	}
	return err
}
