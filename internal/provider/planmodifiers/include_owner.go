package planmodifiers

import (
	"context"
	"fmt"
	"slices"

	"github.com/hashicorp/terraform-plugin-framework/attr"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/planmodifier"
	"github.com/hashicorp/terraform-plugin-framework/types"

	customtypes "github.com/isometry/terraform-provider-directory/internal/provider/types"
)

// includeOwner implements the plan modifier.
type includeOwner struct {
	owner path.Path
}

// IncludeOwner returns a plan modifier for a set of member DNs that adds the
// DN held by the owner attribute when the set does not already contain it.
// A group owner is always one of its members.
func IncludeOwner(owner string) planmodifier.Set {
	return includeOwner{owner: path.Root(owner)}
}

// Description returns a human-readable description of the plan modifier.
func (m includeOwner) Description(_ context.Context) string {
	return fmt.Sprintf("adds the value of %s to the set", m.owner)
}

// MarkdownDescription returns a markdown description of the plan modifier.
func (m includeOwner) MarkdownDescription(_ context.Context) string {
	return fmt.Sprintf("adds the value of `%s` to the set", m.owner)
}

// PlanModifySet implements the plan modification logic.
func (m includeOwner) PlanModifySet(ctx context.Context, req planmodifier.SetRequest, resp *planmodifier.SetResponse) {
	if req.Plan.Raw.IsNull() {
		return
	}
	// Wait for the configured members to be known
	if req.ConfigValue.IsUnknown() {
		return
	}

	var owner types.String
	resp.Diagnostics.Append(req.Plan.GetAttribute(ctx, m.owner, &owner)...)
	if resp.Diagnostics.HasError() {
		return
	}
	if owner.IsUnknown() {
		resp.PlanValue = types.SetUnknown(types.StringType)
		return
	}
	if owner.IsNull() || owner.ValueString() == "" {
		return
	}

	var members []string
	if !req.ConfigValue.IsNull() {
		resp.Diagnostics.Append(req.ConfigValue.ElementsAs(ctx, &members, false)...)
		if resp.Diagnostics.HasError() {
			return
		}
	}

	ownerDN := owner.ValueString()
	if !slices.ContainsFunc(members, func(dn string) bool { return customtypes.SameDN(dn, ownerDN) }) {
		members = append(members, ownerDN)
	}

	elements := make([]attr.Value, 0, len(members))
	for _, dn := range members {
		elements = append(elements, types.StringValue(dn))
	}
	planValue, diags := types.SetValue(types.StringType, elements)
	resp.Diagnostics.Append(diags...)
	if resp.Diagnostics.HasError() {
		return
	}
	resp.PlanValue = planValue
}
