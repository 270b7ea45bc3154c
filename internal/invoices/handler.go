package invoices

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ledgerline/ledgerline/internal/authz"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/store"
)

// Handler exposes invoice endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers invoice routes. Permission checks live in the
// service; the routes only need an authenticated identity.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{invoiceID}", h.get)
	r.Put("/{invoiceID}", h.update)
	r.Delete("/{invoiceID}", h.delete)
	r.Post("/archive", h.archive)
}

type invoiceRequest struct {
	CustomerName string `json:"customer_name" validate:"required,min=2,max=128"`
	Reference    string `json:"reference" validate:"max=64"`
	Status       string `json:"status" validate:"omitempty,oneof=draft sent paid archived"`
	AmountCents  int64  `json:"amount_cents" validate:"gte=0"`
}

type invoiceResponse struct {
	ID           int64     `json:"id"`
	CompanyID    int64     `json:"company_id"`
	CustomerName string    `json:"customer_name"`
	Reference    string    `json:"reference"`
	Status       string    `json:"status"`
	AmountCents  int64     `json:"amount_cents"`
	IssuedAt     time.Time `json:"issued_at"`
}

func toResponse(inv Invoice) invoiceResponse {
	return invoiceResponse(inv)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	id := authz.IdentityFromContext(r.Context())
	invs, err := h.service.List(r.Context(), id, ListFilter{Status: r.URL.Query().Get("status")})
	if err != nil {
		h.respondErr(w, "list invoices", err)
		return
	}
	out := make([]invoiceResponse, 0, len(invs))
	for _, inv := range invs {
		out = append(out, toResponse(inv))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id := authz.IdentityFromContext(r.Context())
	invoiceID, err := strconv.ParseInt(chi.URLParam(r, "invoiceID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid invoice id")
		return
	}
	inv, err := h.service.Get(r.Context(), id, invoiceID)
	if err != nil {
		h.respondErr(w, "get invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*inv))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	id := authz.IdentityFromContext(r.Context())
	var req invoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	created, err := h.service.Create(r.Context(), id, Invoice{
		CustomerName: req.CustomerName,
		Reference:    req.Reference,
		Status:       req.Status,
		AmountCents:  req.AmountCents,
	})
	if err != nil {
		h.respondErr(w, "create invoice", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(*created))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id := authz.IdentityFromContext(r.Context())
	invoiceID, err := strconv.ParseInt(chi.URLParam(r, "invoiceID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid invoice id")
		return
	}
	var req invoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	updated, err := h.service.Update(r.Context(), id, invoiceID, Invoice{
		CustomerName: req.CustomerName,
		Reference:    req.Reference,
		Status:       req.Status,
		AmountCents:  req.AmountCents,
	})
	if err != nil {
		h.respondErr(w, "update invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(*updated))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id := authz.IdentityFromContext(r.Context())
	invoiceID, err := strconv.ParseInt(chi.URLParam(r, "invoiceID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid invoice id")
		return
	}
	if err := h.service.Delete(r.Context(), id, invoiceID); err != nil {
		h.respondErr(w, "delete invoice", err)
		return
	}
	httpx.NoContent(w)
}

type archiveRequest struct {
	Status string `json:"status" validate:"required,oneof=draft sent paid"`
}

func (h *Handler) archive(w http.ResponseWriter, r *http.Request) {
	id := authz.IdentityFromContext(r.Context())
	var req archiveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	n, err := h.service.ArchiveByStatus(r.Context(), id, req.Status)
	if err != nil {
		h.respondErr(w, "archive invoices", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{"archived": n})
}

func (h *Handler) respondErr(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, authz.ErrPermissionDenied):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, store.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invoice not found")
	case errors.Is(err, store.ErrMissingTenantContext),
		errors.Is(err, store.ErrForbiddenCrossTenantAccess):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
