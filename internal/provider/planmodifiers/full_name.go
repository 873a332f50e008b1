package planmodifiers

import (
	"context"

	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/planmodifier"
	"github.com/hashicorp/terraform-plugin-framework/types"
)

// useFullName implements the plan modifier.
type useFullName struct {
	first path.Path
	last  path.Path
}

// UseFullName returns a plan modifier for a computed attribute holding the
// first name attribute, a space, and the last name attribute of the same plan.
func UseFullName(first, last string) planmodifier.String {
	return useFullName{
		first: path.Root(first),
		last:  path.Root(last),
	}
}

// Description returns a human-readable description of the plan modifier.
func (m useFullName) Description(_ context.Context) string {
	return "joins the values of " + m.first.String() + " and " + m.last.String()
}

// MarkdownDescription returns a markdown description of the plan modifier.
func (m useFullName) MarkdownDescription(_ context.Context) string {
	return "joins the values of `" + m.first.String() + "` and `" + m.last.String() + "`"
}

// PlanModifyString implements the plan modification logic.
func (m useFullName) PlanModifyString(ctx context.Context, req planmodifier.StringRequest, resp *planmodifier.StringResponse) {
	// Nothing to plan on destroy
	if req.Plan.Raw.IsNull() {
		return
	}

	var first, last types.String
	resp.Diagnostics.Append(req.Plan.GetAttribute(ctx, m.first, &first)...)
	resp.Diagnostics.Append(req.Plan.GetAttribute(ctx, m.last, &last)...)
	if resp.Diagnostics.HasError() {
		return
	}

	if first.IsUnknown() || last.IsUnknown() {
		resp.PlanValue = types.StringUnknown()
		return
	}
	if first.IsNull() || last.IsNull() {
		resp.PlanValue = types.StringNull()
		return
	}

	resp.PlanValue = types.StringValue(first.ValueString() + " " + last.ValueString())
}
