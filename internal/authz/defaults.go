package authz

import "strings"

// defaultRolePermissions is the baseline permission table used when no
// explicit role definition is resolvable for an identity. Admin role types
// map to the full universe; everything else is a strict subset.
var defaultRolePermissions = map[RoleType]PermissionSet{
	RoleAdmin:      NewPermissionSet(AllPermissions()...),
	RoleSuperAdmin: NewPermissionSet(AllPermissions()...),
	RoleAccountant: NewPermissionSet(
		PermCreateQuotation, PermViewQuotation, PermEditQuotation,
		PermCreateInvoice, PermViewInvoice, PermEditInvoice,
		PermCreateCreditNote, PermViewCreditNote, PermEditCreditNote,
		PermCreateProforma, PermViewProforma, PermEditProforma,
		PermCreatePayment, PermViewPayment, PermEditPayment,
		PermCreateRemittance, PermViewRemittance, PermEditRemittance,
		PermViewCustomer,
		PermViewLPO,
		PermViewReports, PermExportReports,
	),
	RoleStockManager: NewPermissionSet(
		PermCreateInventory, PermViewInventory, PermEditInventory, PermDeleteInventory,
		PermCreateDeliveryNote, PermViewDeliveryNote, PermEditDeliveryNote, PermDeleteDeliveryNote,
		PermCreateLPO, PermViewLPO, PermEditLPO,
		PermViewCustomer,
		PermManageTransport,
	),
	RoleUser: NewPermissionSet(
		PermViewQuotation,
		PermViewInvoice,
		PermViewCustomer,
		PermViewInventory,
		PermViewDeliveryNote,
	),
}

// DefaultPermissionsFor returns a copy of the baseline permission set for the
// given role type. Unknown role types resolve to the user baseline.
func DefaultPermissionsFor(rt RoleType) PermissionSet {
	if set, ok := defaultRolePermissions[rt]; ok {
		return set.Clone()
	}
	return defaultRolePermissions[RoleUser].Clone()
}

// ResolveRoleType maps an arbitrary role name onto a known role type using an
// ordered fallback: exact match, then case-insensitive match, then the
// accountant-or-user last resort. Unrecognized names never resolve to an
// administrative role type.
func ResolveRoleType(name string) RoleType {
	name = strings.TrimSpace(name)
	for rt := range defaultRolePermissions {
		if name == string(rt) {
			return rt
		}
	}
	for rt := range defaultRolePermissions {
		if strings.EqualFold(name, string(rt)) {
			return rt
		}
	}
	if strings.EqualFold(name, string(RoleAccountant)) {
		return RoleAccountant
	}
	return RoleUser
}
