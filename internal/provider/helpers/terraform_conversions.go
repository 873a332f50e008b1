// Package helpers provides conversions between Terraform values and the plain
// Go values the directory entities take.
package helpers

import (
	"context"
	"slices"
	"strings"

	"github.com/hashicorp/terraform-plugin-framework/attr"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-framework/types/basetypes"
)

// StringValue returns the value of s, or "" when s is null or unknown.
func StringValue(s types.String) string {
	if s.IsNull() || s.IsUnknown() {
		return ""
	}
	return s.ValueString()
}

// StringOrNull returns a null string for "" and a known string otherwise.
func StringOrNull(s string) types.String {
	if s == "" {
		return types.StringNull()
	}
	return types.StringValue(s)
}

// SetToStrings returns the elements of set. Null and unknown sets yield no
// elements.
func SetToStrings(ctx context.Context, set basetypes.SetValue) ([]string, diag.Diagnostics) {
	if set.IsNull() || set.IsUnknown() {
		return nil, nil
	}
	var out []string
	diags := set.ElementsAs(ctx, &out, false)
	return out, diags
}

// StringsToSet builds a set of strings, sorted for stable output.
func StringsToSet(values []string) (basetypes.SetValue, diag.Diagnostics) {
	sorted := slices.Clone(values)
	slices.SortFunc(sorted, func(a, b string) int { return strings.Compare(strings.ToLower(a), strings.ToLower(b)) })

	elements := make([]attr.Value, 0, len(sorted))
	for _, v := range sorted {
		elements = append(elements, types.StringValue(v))
	}
	return types.SetValue(types.StringType, elements)
}

// Diff returns the values of want missing from have and the values of have
// missing from want, using equal to compare them.
func Diff(have, want []string, equal func(a, b string) bool) (added, removed []string) {
	for _, w := range want {
		if !slices.ContainsFunc(have, func(h string) bool { return equal(h, w) }) {
			added = append(added, w)
		}
	}
	for _, h := range have {
		if !slices.ContainsFunc(want, func(w string) bool { return equal(h, w) }) {
			removed = append(removed, h)
		}
	}
	return added, removed
}
