package validators

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework/schema/validator"

	ldapclient "github.com/isometry/terraform-provider-directory/internal/ldap"
)

var _ validator.String = pathValidator{}

// pathValidator accepts strings that parse as a directory path. A
// positive depth also fixes the number of components.
type pathValidator struct {
	depth   int
	example string
}

func (v pathValidator) Description(_ context.Context) string {
	if v.depth == 1 {
		return "value must be a single relative distinguished name, such as " + v.example
	}
	return "value must be a distinguished name, such as " + v.example
}

func (v pathValidator) MarkdownDescription(ctx context.Context) string {
	return v.Description(ctx)
}

func (v pathValidator) ValidateString(ctx context.Context, req validator.StringRequest, resp *validator.StringResponse) {
	if req.ConfigValue.IsNull() || req.ConfigValue.IsUnknown() {
		return
	}

	value := req.ConfigValue.ValueString()
	p, err := ldapclient.ParsePath(value)
	if err != nil {
		resp.Diagnostics.AddAttributeError(
			req.Path,
			"Invalid Distinguished Name",
			fmt.Sprintf("%q cannot be parsed as a distinguished name (for example %s): %s", value, v.example, err),
		)
		return
	}

	if v.depth > 0 && p.Depth() != v.depth {
		resp.Diagnostics.AddAttributeError(
			req.Path,
			"Invalid Relative Distinguished Name",
			fmt.Sprintf("%q has %d components, expected %d (for example %s)", value, p.Depth(), v.depth, v.example),
		)
	}
}

// IsValidDN returns a validator for attributes holding the distinguished
// name of an entry. Null and unknown values are not checked.
func IsValidDN() validator.String {
	return pathValidator{example: "`uid=jdoe,ou=People,dc=example,dc=com`"}
}

// IsValidRDN returns a validator for container names given relative to the
// base DN, which must be exactly one component such as `ou=People`.
func IsValidRDN() validator.String {
	return pathValidator{depth: 1, example: "`ou=People`"}
}
