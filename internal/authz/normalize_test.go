package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePermissionsArray(t *testing.T) {
	set := NormalizePermissions([]string{"view_invoice", "create_invoice", "view_invoice"})
	assert.Len(t, set, 2)
	assert.True(t, set.Has(PermViewInvoice))
	assert.True(t, set.Has(PermCreateInvoice))
}

func TestNormalizePermissionsJSONString(t *testing.T) {
	fromJSON := NormalizePermissions(`["view_invoice","export_reports"]`)
	fromArray := NormalizePermissions([]string{"view_invoice", "export_reports"})
	assert.Equal(t, fromArray, fromJSON)
}

func TestNormalizePermissionsDelimitedString(t *testing.T) {
	set := NormalizePermissions("view_invoice, create_invoice ,view_invoice")
	assert.Len(t, set, 2)
	assert.True(t, set.Has(PermViewInvoice))

	semis := NormalizePermissions("view_invoice;create_invoice")
	assert.Len(t, semis, 2)
	assert.True(t, semis.Has(PermCreateInvoice))
}

func TestNormalizePermissionsCasingAndWhitespace(t *testing.T) {
	set := NormalizePermissions([]string{" VIEW_INVOICE ", "View_Reports"})
	assert.True(t, set.Has(PermViewInvoice))
	assert.True(t, set.Has(PermViewReports))
}

func TestNormalizePermissionsMalformedIsEmpty(t *testing.T) {
	assert.Empty(t, NormalizePermissions(nil))
	assert.Empty(t, NormalizePermissions(""))
	assert.Empty(t, NormalizePermissions("   "))
	assert.Empty(t, NormalizePermissions(`["unterminated`))
	assert.Empty(t, NormalizePermissions(`[1,2,3`))
	assert.Empty(t, NormalizePermissions(42))
	assert.Empty(t, NormalizePermissions(map[string]any{"view_invoice": true}))
}

func TestNormalizePermissionsJSONNonStrings(t *testing.T) {
	// Non-string members are dropped, not errored.
	set := NormalizePermissions(`["view_invoice", 3, null]`)
	assert.Len(t, set, 1)
	assert.True(t, set.Has(PermViewInvoice))
}

func TestNormalizePermissionsRoundTrip(t *testing.T) {
	original := NewPermissionSet(PermViewInvoice, PermEditInvoice)
	assert.Equal(t, original, NormalizePermissions(original))
}

func TestNormalizePermissionsBytes(t *testing.T) {
	set := NormalizePermissions([]byte(`["view_invoice"]`))
	assert.True(t, set.Has(PermViewInvoice))
}
