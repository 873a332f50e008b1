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
var _ datasource.DataSource = &UserDataSource{}
var _ datasource.DataSourceWithConfigure = &UserDataSource{}
var _ datasource.DataSourceWithConfigValidators = &UserDataSource{}

func NewUserDataSource() datasource.DataSource {
	return &UserDataSource{}
}

// UserDataSource defines the data source implementation.
type UserDataSource struct {
	providerData *ProviderData
}

// UserDataSourceModel describes the data source data model.
type UserDataSourceModel struct {
	// Lookup methods (mutually exclusive)
	UID               types.String        `tfsdk:"uid"`
	DistinguishedName customtypes.DNValue `tfsdk:"dn"`

	ID          types.String `tfsdk:"id"`
	CN          types.String `tfsdk:"cn"`
	SN          types.String `tfsdk:"sn"`
	Mail        types.String `tfsdk:"mail"`
	Description types.String `tfsdk:"description"`
	Name        types.String `tfsdk:"name"`
	SID         types.String `tfsdk:"sid"`
}

func (d *UserDataSource) Metadata(ctx context.Context, req datasource.MetadataRequest, resp *datasource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_user"
}

func (d *UserDataSource) Schema(ctx context.Context, req datasource.SchemaRequest, resp *datasource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Retrieves a user of the directory by uid or by Distinguished Name.",

		Attributes: map[string]schema.Attribute{
			"uid": schema.StringAttribute{
				MarkdownDescription: "The uid of the user. Exactly one of `uid` or `dn` must be set.",
				Optional:            true,
				Computed:            true,
			},
			"dn": schema.StringAttribute{
				MarkdownDescription: "The Distinguished Name of the user. Exactly one of `uid` or `dn` must be set.",
				Optional:            true,
				Computed:            true,
				CustomType:          customtypes.DNType{},
				Validators: []validator.String{
					validators.IsValidDN(),
				},
			},
			"id": schema.StringAttribute{
				MarkdownDescription: "The Distinguished Name of the user.",
				Computed:            true,
			},
			"cn": schema.StringAttribute{
				MarkdownDescription: "First name of the user.",
				Computed:            true,
			},
			"sn": schema.StringAttribute{
				MarkdownDescription: "Last name of the user.",
				Computed:            true,
			},
			"mail": schema.StringAttribute{
				MarkdownDescription: "Email address of the user.",
				Computed:            true,
			},
			"description": schema.StringAttribute{
				MarkdownDescription: "Description of the user, null when unset.",
				Computed:            true,
			},
			"name": schema.StringAttribute{
				MarkdownDescription: "Full name of the user (`cn` and `sn` joined by a space).",
				Computed:            true,
			},
			"sid": schema.StringAttribute{
				MarkdownDescription: "Security Identifier of the user when the directory is Active Directory.",
				Computed:            true,
			},
		},
	}
}

// ConfigValidators implements datasource.DataSourceWithConfigValidators.
func (d *UserDataSource) ConfigValidators(ctx context.Context) []datasource.ConfigValidator {
	return []datasource.ConfigValidator{
		datasourcevalidator.ExactlyOneOf(
			path.MatchRoot("uid"),
			path.MatchRoot("dn"),
		),
	}
}

func (d *UserDataSource) Configure(ctx context.Context, req datasource.ConfigureRequest, resp *datasource.ConfigureResponse) {
	d.providerData = providerDataFrom(req.ProviderData, &resp.Diagnostics, "Data Source")
}

func (d *UserDataSource) Read(ctx context.Context, req datasource.ReadRequest, resp *datasource.ReadResponse) {
	var data UserDataSourceModel

	// Initialize logging subsystem for consistent logging
	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	var user *ldapclient.User
	err := d.providerData.withSession(ctx, func(dir *ldapclient.Directory, s *ldapclient.Session) error {
		var err error
		if uid := helpers.StringValue(data.UID); uid != "" {
			tflog.Debug(ctx, "Looking up user by uid", map[string]any{"uid": uid})
			user, err = dir.FindUserByUID(ctx, s, uid)
			return err
		}

		dn := data.DistinguishedName.ValueString()
		tflog.Debug(ctx, "Looking up user by DN", map[string]any{"dn": dn})
		entryPath, err := dir.BuildPath(dn)
		if err != nil {
			return err
		}
		user, err = dir.FindUser(ctx, s, entryPath)
		return err
	})
	if ldapclient.IsNotFoundError(err) {
		resp.Diagnostics.AddError("User Not Found", "The specified directory user could not be found: "+err.Error())
		return
	}
	if err != nil {
		addDirectoryError(&resp.Diagnostics, "Error Reading User", err, nil)
		return
	}

	tflog.Debug(ctx, "Successfully retrieved directory user", map[string]any{
		"dn":  user.DN(),
		"uid": user.UID(),
	})

	data.ID = types.StringValue(user.DN())
	data.UID = types.StringValue(user.UID())
	if data.DistinguishedName.IsNull() || data.DistinguishedName.IsUnknown() ||
		!customtypes.SameDN(data.DistinguishedName.ValueString(), user.DN()) {
		data.DistinguishedName = customtypes.NewDNValue(user.DN())
	}
	data.CN = types.StringValue(user.CN())
	data.SN = types.StringValue(user.SN())
	data.Mail = types.StringValue(user.Mail())
	data.Description = helpers.StringOrNull(user.Description())
	data.Name = types.StringValue(user.Name())
	data.SID = helpers.StringOrNull(user.ObjectSID())

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}
