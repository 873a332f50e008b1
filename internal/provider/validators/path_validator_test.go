package validators_test

import (
	"testing"

	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isometry/terraform-provider-directory/internal/provider/validators"
)

func validate(t *testing.T, v validator.String, value types.String) validator.StringResponse {
	t.Helper()
	var resp validator.StringResponse
	v.ValidateString(t.Context(), validator.StringRequest{
		Path:        path.Root("owner"),
		ConfigValue: value,
	}, &resp)
	return resp
}

func TestIsValidDN(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		value   types.String
		summary string
	}{
		"user":                  {value: types.StringValue("uid=jdoe,ou=People,dc=example,dc=com")},
		"group":                 {value: types.StringValue("cn=developers,ou=groups,o=IT,dc=example,dc=com")},
		"escaped comma":         {value: types.StringValue(`cn=Doe\, Jane,ou=People,dc=example,dc=com`)},
		"spaces after commas":   {value: types.StringValue("uid=jdoe, ou=People, dc=example, dc=com")},
		"single component":      {value: types.StringValue("dc=com")},
		"null":                  {value: types.StringNull()},
		"unknown":               {value: types.StringUnknown()},
		"empty":                 {value: types.StringValue(""), summary: "Invalid Distinguished Name"},
		"blank":                 {value: types.StringValue("   "), summary: "Invalid Distinguished Name"},
		"no attribute type":     {value: types.StringValue("jdoe"), summary: "Invalid Distinguished Name"},
		"missing type":          {value: types.StringValue("=jdoe,dc=example,dc=com"), summary: "Invalid Distinguished Name"},
		"empty component":       {value: types.StringValue("uid=jdoe,,dc=com"), summary: "Invalid Distinguished Name"},
		"trailing bare element": {value: types.StringValue("uid=jdoe,People"), summary: "Invalid Distinguished Name"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			resp := validate(t, validators.IsValidDN(), tt.value)

			if tt.summary == "" {
				assert.False(t, resp.Diagnostics.HasError(), "%v", resp.Diagnostics)
				return
			}
			require.Len(t, resp.Diagnostics, 1)
			assert.Equal(t, tt.summary, resp.Diagnostics[0].Summary())
			assert.Contains(t, resp.Diagnostics[0].Detail(), "uid=jdoe,ou=People,dc=example,dc=com")
		})
	}
}

func TestIsValidRDN(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		value   types.String
		summary string
	}{
		"container": {value: types.StringValue("ou=People")},
		"null":      {value: types.StringNull()},
		"nested":    {value: types.StringValue("ou=People,ou=Staff"), summary: "Invalid Relative Distinguished Name"},
		"bare name": {value: types.StringValue("People"), summary: "Invalid Distinguished Name"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			resp := validate(t, validators.IsValidRDN(), tt.value)

			if tt.summary == "" {
				assert.False(t, resp.Diagnostics.HasError(), "%v", resp.Diagnostics)
				return
			}
			require.Len(t, resp.Diagnostics, 1)
			assert.Equal(t, tt.summary, resp.Diagnostics[0].Summary())
			assert.Contains(t, resp.Diagnostics[0].Detail(), "ou=People")
		})
	}
}

func TestPathValidatorDescriptions(t *testing.T) {
	ctx := t.Context()

	dn := validators.IsValidDN()
	assert.Contains(t, dn.Description(ctx), "distinguished name")
	assert.Equal(t, dn.Description(ctx), dn.MarkdownDescription(ctx))

	assert.Contains(t, validators.IsValidRDN().Description(ctx), "`ou=People`")
}
