package types

import (
	"fmt"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework/diag"

	ldapclient "github.com/isometry/terraform-provider-directory/internal/ldap"
)

// SameDN reports whether a and b name the same entry. Attribute types and
// values compare case-insensitively and spacing around separators is
// ignored. Text that does not parse as a DN is compared by case folding.
func SameDN(a, b string) bool {
	if a == "" || b == "" {
		return a == b
	}
	return dnKey(a) == dnKey(b)
}

func dnKey(dn string) string {
	p, err := ldapclient.ParsePath(dn)
	if err != nil {
		return strings.ToLower(dn)
	}
	return p.Key()
}

// sameDNSet compares two lists of DNs as sets. Two spellings of one entry
// on the same side make the sets differ, since the directory would store
// one value where the configuration holds two.
func sameDNSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	seen := make(map[string]bool, len(a))
	for _, dn := range a {
		seen[dnKey(dn)] = false
	}
	if len(seen) != len(a) {
		return false
	}

	for _, dn := range b {
		key := dnKey(dn)
		matched, ok := seen[key]
		if !ok || matched {
			return false
		}
		seen[key] = true
	}
	return true
}

func semanticEqualityError(want string, got any) diag.Diagnostics {
	var diags diag.Diagnostics
	diags.AddError(
		"Semantic Equality Check Error",
		"An unexpected value type was received while attempting to perform semantic equality checks. "+
			"This is always an error in the provider. Please report the following to the provider developer:\n\n"+
			fmt.Sprintf("Expected %s, but got: %T", want, got),
	)
	return diags
}
