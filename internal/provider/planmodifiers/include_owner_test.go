package planmodifiers_test

import (
	"testing"

	"github.com/hashicorp/terraform-plugin-framework/attr"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/planmodifier"
	"github.com/hashicorp/terraform-plugin-framework/tfsdk"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-go/tftypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isometry/terraform-provider-directory/internal/provider/planmodifiers"
)

const (
	ownerDN  = "uid=owner1,ou=People,dc=example,dc=com"
	memberDN = "uid=jdoe1,ou=People,dc=example,dc=com"
)

func stringSet(t *testing.T, values ...string) types.Set {
	t.Helper()
	elements := make([]attr.Value, 0, len(values))
	for _, v := range values {
		elements = append(elements, types.StringValue(v))
	}
	set, diags := types.SetValue(types.StringType, elements)
	require.False(t, diags.HasError(), "%v", diags)
	return set
}

func groupPlan(owner tftypes.Value) tfsdk.Plan {
	return tfsdk.Plan{
		Raw: tftypes.NewValue(tftypes.Object{
			AttributeTypes: map[string]tftypes.Type{
				"owner":   tftypes.String,
				"members": tftypes.Set{ElementType: tftypes.String},
			},
		}, map[string]tftypes.Value{
			"owner":   owner,
			"members": tftypes.NewValue(tftypes.Set{ElementType: tftypes.String}, tftypes.UnknownValue),
		}),
		Schema: schema.Schema{
			Attributes: map[string]schema.Attribute{
				"owner": schema.StringAttribute{Required: true},
				"members": schema.SetAttribute{
					ElementType: types.StringType,
					Optional:    true,
					Computed:    true,
				},
			},
		},
	}
}

func TestIncludeOwner_PlanModifySet(t *testing.T) {
	tests := map[string]struct {
		owner       tftypes.Value
		configValue types.Set
		expected    []string
		unknown     bool
	}{
		"members_not_configured": {
			owner:       tftypes.NewValue(tftypes.String, ownerDN),
			configValue: types.SetNull(types.StringType),
			expected:    []string{ownerDN},
		},
		"owner_missing_from_members": {
			owner:       tftypes.NewValue(tftypes.String, ownerDN),
			configValue: stringSet(t, memberDN),
			expected:    []string{memberDN, ownerDN},
		},
		"owner_listed_with_different_case": {
			owner:       tftypes.NewValue(tftypes.String, ownerDN),
			configValue: stringSet(t, "UID=owner1, OU=People, DC=example, DC=com", memberDN),
			expected:    []string{"UID=owner1, OU=People, DC=example, DC=com", memberDN},
		},
		"owner_unknown": {
			owner:       tftypes.NewValue(tftypes.String, tftypes.UnknownValue),
			configValue: stringSet(t, memberDN),
			unknown:     true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			req := planmodifier.SetRequest{
				Path:        path.Root("members"),
				ConfigValue: test.configValue,
				PlanValue:   types.SetUnknown(types.StringType),
				Plan:        groupPlan(test.owner),
			}
			resp := &planmodifier.SetResponse{PlanValue: req.PlanValue}

			planmodifiers.IncludeOwner("owner").PlanModifySet(t.Context(), req, resp)
			require.False(t, resp.Diagnostics.HasError(), "%v", resp.Diagnostics)

			if test.unknown {
				assert.True(t, resp.PlanValue.IsUnknown())
				return
			}

			var got []string
			require.False(t, resp.PlanValue.ElementsAs(t.Context(), &got, false).HasError())
			assert.ElementsMatch(t, test.expected, got)
		})
	}
}

func TestIncludeOwner_UnknownConfigIsLeftAlone(t *testing.T) {
	req := planmodifier.SetRequest{
		Path:        path.Root("members"),
		ConfigValue: types.SetUnknown(types.StringType),
		PlanValue:   types.SetUnknown(types.StringType),
		Plan:        groupPlan(tftypes.NewValue(tftypes.String, ownerDN)),
	}
	resp := &planmodifier.SetResponse{PlanValue: req.PlanValue}

	planmodifiers.IncludeOwner("owner").PlanModifySet(t.Context(), req, resp)

	assert.True(t, resp.PlanValue.IsUnknown())
}

func TestIncludeOwner_Description(t *testing.T) {
	m := planmodifiers.IncludeOwner("owner")
	assert.Equal(t, "adds the value of owner to the set", m.Description(t.Context()))
	assert.Equal(t, "adds the value of `owner` to the set", m.MarkdownDescription(t.Context()))
}
