package invoices

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/ledgerline/ledgerline/internal/audit"
	"github.com/ledgerline/ledgerline/internal/authz"
	"github.com/ledgerline/ledgerline/internal/store"
)

// Service handles invoice operations. Every call is gated by the evaluator
// and goes to storage through the tenant-scoped store, so a missing
// permission check at an outer layer still cannot cross tenants.
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
	return store.NewScoped(s.backend, id, s.logger).
		WithAuditHook(s.attribution).
		WithViolationHook(s.violations)
}

func (s *Service) attribution(ctx context.Context, id *authz.AuthContext, op, collection string) {
	s.recorder.Record(ctx, audit.Event{
		ActorID:   id.UserID,
		CompanyID: id.CompanyID,
		Role:      id.Role,
		Action:    op,
		Entity:    collection,
		Decision:  audit.DecisionBypass,
	})
}

func (s *Service) require(ctx context.Context, id *authz.AuthContext, p authz.Permission) error {
	err := s.eval.CheckerFor(id).Require(p)
	if err != nil {
		s.recorder.Record(ctx, audit.Event{
			ActorID:   id.UserID,
			CompanyID: id.CompanyID,
			Role:      id.Role,
			Action:    string(p),
			Entity:    Collection,
			Decision:  audit.DecisionDenied,
		})
	}
	return err
}

// ListFilter narrows List results.
type ListFilter struct {
	Status string
}

// List returns the caller's tenant invoices, optionally filtered by status.
func (s *Service) List(ctx context.Context, id *authz.AuthContext, filter ListFilter) ([]Invoice, error) {
	if err := s.require(ctx, id, authz.PermViewInvoice); err != nil {
		return nil, err
	}
	f := store.Filter{}
	if filter.Status != "" {
		f["status"] = filter.Status
	}
	recs, err := s.scoped(id).Select(ctx, Collection, f)
	if err != nil {
		return nil, err
	}
	out := make([]Invoice, 0, len(recs))
	for _, rec := range recs {
		out = append(out, fromRecord(rec))
	}
	return out, nil
}

// Get fetches one invoice visible to the caller.
func (s *Service) Get(ctx context.Context, id *authz.AuthContext, invoiceID int64) (*Invoice, error) {
	if err := s.require(ctx, id, authz.PermViewInvoice); err != nil {
		return nil, err
	}
	rec, err := s.scoped(id).SelectOne(ctx, Collection, invoiceID)
	if err != nil {
		return nil, err
	}
	inv := fromRecord(rec)
	return &inv, nil
}

// Create stores a new invoice in the caller's tenant.
func (s *Service) Create(ctx context.Context, id *authz.AuthContext, inv Invoice) (*Invoice, error) {
	if err := s.require(ctx, id, authz.PermCreateInvoice); err != nil {
		return nil, err
	}
	if inv.Status == "" {
		inv.Status = StatusDraft
	}
	if inv.IssuedAt.IsZero() {
		inv.IssuedAt = time.Now().UTC()
	}
	rec, err := s.scoped(id).Insert(ctx, Collection, toRecord(inv))
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

// Update merges changes into an invoice owned by the caller's tenant.
func (s *Service) Update(ctx context.Context, id *authz.AuthContext, invoiceID int64, changes Invoice) (*Invoice, error) {
	if err := s.require(ctx, id, authz.PermEditInvoice); err != nil {
		return nil, err
	}
	rec := store.Record{}
	if changes.CustomerName != "" {
		rec["customer_name"] = changes.CustomerName
	}
	if changes.Reference != "" {
		rec["reference"] = changes.Reference
	}
	if changes.Status != "" {
		rec["status"] = changes.Status
	}
	if changes.AmountCents != 0 {
		rec["amount_cents"] = changes.AmountCents
	}
	updated, err := s.scoped(id).Update(ctx, Collection, invoiceID, rec)
	if err != nil {
		return nil, err
	}
	inv := fromRecord(updated)
	return &inv, nil
}

// Delete removes an invoice owned by the caller's tenant.
func (s *Service) Delete(ctx context.Context, id *authz.AuthContext, invoiceID int64) error {
	if err := s.require(ctx, id, authz.PermDeleteInvoice); err != nil {
		return err
	}
	if err := s.scoped(id).Delete(ctx, Collection, invoiceID); err != nil {
		return err
	}
	s.recorder.Record(ctx, audit.Event{
		ActorID:   id.UserID,
		CompanyID: id.CompanyID,
		Role:      id.Role,
		Action:    "delete",
		Entity:    Collection,
		EntityID:  strconv.FormatInt(invoiceID, 10),
		Decision:  audit.DecisionAllowed,
	})
	return nil
}

// ArchiveByStatus bulk-archives the tenant's invoices in the given status
// and reports how many were touched.
func (s *Service) ArchiveByStatus(ctx context.Context, id *authz.AuthContext, status string) (int64, error) {
	if err := s.require(ctx, id, authz.PermEditInvoice); err != nil {
		return 0, err
	}
	return s.scoped(id).UpdateMany(ctx, Collection, store.Filter{"status": status}, store.Record{"status": StatusArchived})
}
