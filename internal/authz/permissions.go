package authz

import "sort"

// Permission names one allowed action on one entity type.
type Permission string

// Quotations.
const (
	PermCreateQuotation Permission = "create_quotation"
	PermViewQuotation   Permission = "view_quotation"
	PermEditQuotation   Permission = "edit_quotation"
	PermDeleteQuotation Permission = "delete_quotation"
)

// Invoices.
const (
	PermCreateInvoice Permission = "create_invoice"
	PermViewInvoice   Permission = "view_invoice"
	PermEditInvoice   Permission = "edit_invoice"
	PermDeleteInvoice Permission = "delete_invoice"
)

// Credit notes.
const (
	PermCreateCreditNote Permission = "create_credit_note"
	PermViewCreditNote   Permission = "view_credit_note"
	PermEditCreditNote   Permission = "edit_credit_note"
	PermDeleteCreditNote Permission = "delete_credit_note"
)

// Proforma invoices.
const (
	PermCreateProforma Permission = "create_proforma"
	PermViewProforma   Permission = "view_proforma"
	PermEditProforma   Permission = "edit_proforma"
	PermDeleteProforma Permission = "delete_proforma"
)

// Payments.
const (
	PermCreatePayment Permission = "create_payment"
	PermViewPayment   Permission = "view_payment"
	PermEditPayment   Permission = "edit_payment"
	PermDeletePayment Permission = "delete_payment"
)

// Inventory.
const (
	PermCreateInventory Permission = "create_inventory"
	PermViewInventory   Permission = "view_inventory"
	PermEditInventory   Permission = "edit_inventory"
	PermDeleteInventory Permission = "delete_inventory"
)

// Customers.
const (
	PermCreateCustomer Permission = "create_customer"
	PermViewCustomer   Permission = "view_customer"
	PermEditCustomer   Permission = "edit_customer"
	PermDeleteCustomer Permission = "delete_customer"
)

// Delivery notes.
const (
	PermCreateDeliveryNote Permission = "create_delivery_note"
	PermViewDeliveryNote   Permission = "view_delivery_note"
	PermEditDeliveryNote   Permission = "edit_delivery_note"
	PermDeleteDeliveryNote Permission = "delete_delivery_note"
)

// Local purchase orders.
const (
	PermCreateLPO Permission = "create_lpo"
	PermViewLPO   Permission = "view_lpo"
	PermEditLPO   Permission = "edit_lpo"
	PermDeleteLPO Permission = "delete_lpo"
)

// Remittances.
const (
	PermCreateRemittance Permission = "create_remittance"
	PermViewRemittance   Permission = "view_remittance"
	PermEditRemittance   Permission = "edit_remittance"
	PermDeleteRemittance Permission = "delete_remittance"
)

// Cross-cutting permissions.
const (
	PermViewReports           Permission = "view_reports"
	PermExportReports         Permission = "export_reports"
	PermManageTransport       Permission = "manage_transport"
	PermViewAuditLogs         Permission = "view_audit_logs"
	PermManageRoles           Permission = "manage_roles"
	PermManageUsers           Permission = "manage_users"
	PermManageCompanySettings Permission = "manage_company_settings"
)

var allPermissions = []Permission{
	PermCreateQuotation, PermViewQuotation, PermEditQuotation, PermDeleteQuotation,
	PermCreateInvoice, PermViewInvoice, PermEditInvoice, PermDeleteInvoice,
	PermCreateCreditNote, PermViewCreditNote, PermEditCreditNote, PermDeleteCreditNote,
	PermCreateProforma, PermViewProforma, PermEditProforma, PermDeleteProforma,
	PermCreatePayment, PermViewPayment, PermEditPayment, PermDeletePayment,
	PermCreateInventory, PermViewInventory, PermEditInventory, PermDeleteInventory,
	PermCreateCustomer, PermViewCustomer, PermEditCustomer, PermDeleteCustomer,
	PermCreateDeliveryNote, PermViewDeliveryNote, PermEditDeliveryNote, PermDeleteDeliveryNote,
	PermCreateLPO, PermViewLPO, PermEditLPO, PermDeleteLPO,
	PermCreateRemittance, PermViewRemittance, PermEditRemittance, PermDeleteRemittance,
	PermViewReports, PermExportReports, PermManageTransport, PermViewAuditLogs,
	PermManageRoles, PermManageUsers, PermManageCompanySettings,
}

// AllPermissions returns the full permission universe.
func AllPermissions() []Permission {
	out := make([]Permission, len(allPermissions))
	copy(out, allPermissions)
	return out
}

// PermissionSet is a deduplicated collection of permission tags.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from the given tags.
func NewPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// Has reports membership.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Add inserts a tag into the set.
func (s PermissionSet) Add(p Permission) {
	s[p] = struct{}{}
}

// Clone returns an independent copy of the set.
func (s PermissionSet) Clone() PermissionSet {
	out := make(PermissionSet, len(s))
	for p := range s {
		out[p] = struct{}{}
	}
	return out
}

// List returns the tags in lexical order.
func (s PermissionSet) List() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
