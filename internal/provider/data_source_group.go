package provider

import (
	"context"

	"github.com/hashicorp/terraform-plugin-framework-validators/datasourcevalidator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/datasource/schema"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	ldapclient "github.com/isometry/terraform-provider-directory/internal/ldap"
	"github.com/isometry/terraform-provider-directory/internal/provider/helpers"
	customtypes "github.com/isometry/terraform-provider-directory/internal/provider/types"
	"github.com/isometry/terraform-provider-directory/internal/provider/validators"
)

// Ensure provider defined types fully satisfy framework interfaces.
var _ datasource.DataSource = &GroupDataSource{}
var _ datasource.DataSourceWithConfigure = &GroupDataSource{}
var _ datasource.DataSourceWithConfigValidators = &GroupDataSource{}

func NewGroupDataSource() datasource.DataSource {
	return &GroupDataSource{}
}

// GroupDataSource defines the data source implementation.
type GroupDataSource struct {
	providerData *ProviderData
}

// GroupDataSourceModel describes the data source data model.
type GroupDataSourceModel struct {
	// Lookup methods (mutually exclusive)
	Name              types.String        `tfsdk:"name"`
	DistinguishedName customtypes.DNValue `tfsdk:"dn"`

	ID          types.String           `tfsdk:"id"`
	Description types.String           `tfsdk:"description"`
	Owner       types.String           `tfsdk:"owner"`
	Members     customtypes.DNSetValue `tfsdk:"members"`
	MemberUIDs  types.Set              `tfsdk:"member_uids"`
	MemberCount types.Int64            `tfsdk:"member_count"`
}

func (d *GroupDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_group"
}

func (d *GroupDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Retrieves a group of the directory by name or by Distinguished Name. " +
			"Every member is resolved to its user entry, so a dangling member reference fails the read.",

		Attributes: map[string]schema.Attribute{
			"name": schema.StringAttribute{
				MarkdownDescription: "The name (cn) of the group. Exactly one of `name` or `dn` must be set.",
				Optional:            true,
				Computed:            true,
			},
			"dn": schema.StringAttribute{
				MarkdownDescription: "The Distinguished Name of the group. Exactly one of `name` or `dn` must be set.",
				Optional:            true,
				Computed:            true,
				CustomType:          customtypes.DNType{},
				Validators: []validator.String{
					validators.IsValidDN(),
				},
			},
			"id": schema.StringAttribute{
				MarkdownDescription: "The Distinguished Name of the group.",
				Computed:            true,
			},
			"description": schema.StringAttribute{
				MarkdownDescription: "Description of the group, null when unset.",
				Computed:            true,
			},
			"owner": schema.StringAttribute{
				MarkdownDescription: "Distinguished Name of the owner of the group.",
				Computed:            true,
			},
			"members": schema.SetAttribute{
				MarkdownDescription: "Distinguished Names of the group members.",
				ElementType:         types.StringType,
				CustomType:          customtypes.NewDNSetType(),
				Computed:            true,
			},
			"member_uids": schema.SetAttribute{
				MarkdownDescription: "The uid of every group member.",
				ElementType:         types.StringType,
				Computed:            true,
			},
			"member_count": schema.Int64Attribute{
				MarkdownDescription: "The number of members in the group.",
				Computed:            true,
			},
		},
	}
}

// ConfigValidators implements datasource.DataSourceWithConfigValidators.
func (d *GroupDataSource) ConfigValidators(ctx context.Context) []datasource.ConfigValidator {
	return []datasource.ConfigValidator{
		datasourcevalidator.ExactlyOneOf(
			path.MatchRoot("name"),
			path.MatchRoot("dn"),
		),
	}
}

func (d *GroupDataSource) Configure(ctx context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
	d.providerData = providerDataFrom(req.ProviderData, &resp.Diagnostics, "Data Source")
}

func (d *GroupDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var data GroupDataSourceModel

	// Initialize logging subsystem for consistent logging
	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	var group *ldapclient.Group
	var members []*ldapclient.User
	err := d.providerData.withSession(ctx, func(dir *ldapclient.Directory, s *ldapclient.Session) error {
		var err error
		if name := helpers.StringValue(data.Name); name != "" {
			tflog.Debug(ctx, "Looking up group by name", map[string]any{"name": name})
			group, err = dir.FindGroupByName(ctx, s, name)
		} else {
			dn := data.DistinguishedName.ValueString()
			tflog.Debug(ctx, "Looking up group by DN", map[string]any{"dn": dn})
			var entryPath *ldapclient.Path
			if entryPath, err = dir.BuildPath(dn); err != nil {
				return err
			}
			group, err = dir.FindGroup(ctx, s, entryPath)
		}
		if err != nil {
			return err
		}

		members, err = group.GetMembers(ctx, dir.Bind(s))
		return err
	})
	if err != nil && group == nil && ldapclient.IsNotFoundError(err) {
		resp.Diagnostics.AddError("Group Not Found", "The specified directory group could not be found: "+err.Error())
		return
	}
	if err != nil {
		addDirectoryError(&resp.Diagnostics, "Error Reading Group", err, nil)
		return
	}

	uids := make([]string, 0, len(members))
	for _, member := range members {
		uids = append(uids, member.UID())
	}

	tflog.Debug(ctx, "Successfully retrieved directory group", map[string]any{
		"dn":           group.DN(),
		"member_count": len(members),
	})

	data.ID = types.StringValue(group.DN())
	data.Name = types.StringValue(group.Name())
	if data.DistinguishedName.IsNull() || data.DistinguishedName.IsUnknown() ||
		!customtypes.SameDN(data.DistinguishedName.ValueString(), group.DN()) {
		data.DistinguishedName = customtypes.NewDNValue(group.DN())
	}
	data.Description = helpers.StringOrNull(group.Description())
	data.Owner = types.StringValue(group.Owner())
	data.MemberCount = types.Int64Value(int64(len(members)))

	memberSet, diags := customtypes.NewDNSetValue(ctx, group.Members())
	resp.Diagnostics.Append(diags...)
	uidSet, diags := helpers.StringsToSet(uids)
	resp.Diagnostics.Append(diags...)
	if resp.Diagnostics.HasError() {
		return
	}
	data.Members = memberSet
	data.MemberUIDs = uidSet

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}
