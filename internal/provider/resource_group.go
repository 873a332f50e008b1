package provider

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/terraform-plugin-framework-validators/setvalidator"
	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/planmodifier"
	"github.com/hashicorp/terraform-plugin-framework/resource/schema/stringplanmodifier"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	ldapclient "github.com/isometry/terraform-provider-directory/internal/ldap"
	"github.com/isometry/terraform-provider-directory/internal/provider/helpers"
	"github.com/isometry/terraform-provider-directory/internal/provider/planmodifiers"
	customtypes "github.com/isometry/terraform-provider-directory/internal/provider/types"
	"github.com/isometry/terraform-provider-directory/internal/provider/validators"
)

// Ensure provider defined types fully satisfy framework interfaces.
var _ resource.Resource = &GroupResource{}
var _ resource.ResourceWithConfigure = &GroupResource{}
var _ resource.ResourceWithImportState = &GroupResource{}

// NewGroupResource creates a new instance of the group resource.
func NewGroupResource() resource.Resource {
	return &GroupResource{}
}

// GroupResource defines the resource implementation.
type GroupResource struct {
	providerData *ProviderData
}

// GroupResourceModel describes the resource data model.
type GroupResourceModel struct {
	ID          types.String           `tfsdk:"id"`          // DN (computed)
	Name        types.String           `tfsdk:"name"`        // Required, forces replacement - cn attribute
	Description types.String           `tfsdk:"description"` // Optional
	Owner       types.String           `tfsdk:"owner"`       // Required - owner DN
	Members     customtypes.DNSetValue `tfsdk:"members"`     // Optional+Computed - always includes the owner
	// Computed attributes
	DistinguishedName customtypes.DNValue `tfsdk:"dn"`
}

func (r *GroupResource) Metadata(ctx context.Context, req resource.MetadataRequest, resp *resource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_group"
}

func (r *GroupResource) Schema(ctx context.Context, req resource.SchemaRequest, resp *resource.SchemaResponse) {
	resp.Schema = schema.Schema{
		// This description is used by the documentation generator and the language server.
		MarkdownDescription: "Manages a group of unique names under the groups container of the directory. " +
			"Every group has an owner, and the owner is always one of its members.",

		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				MarkdownDescription: "The distinguished name of the group.",
				Computed:            true,
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.UseStateForUnknown(),
				},
			},
			"name": schema.StringAttribute{
				MarkdownDescription: "The name of the group (cn attribute). Changing it forces a new group.",
				Required:            true,
				Validators: []validator.String{
					stringvalidator.LengthBetween(1, 64),
					stringvalidator.RegexMatches(
						regexp.MustCompile(`^\S(.*\S)?$`),
						"Group name cannot start or end with whitespace",
					),
				},
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.RequiresReplace(),
				},
			},
			"description": schema.StringAttribute{
				MarkdownDescription: "A description for the group.",
				Optional:            true,
				Validators: []validator.String{
					stringvalidator.LengthAtMost(254),
				},
			},
			"owner": schema.StringAttribute{
				MarkdownDescription: "Distinguished Name (DN) of the user owning the group " +
					"(e.g., `uid=jdoe,ou=People,dc=example,dc=com`). The owner can't be removed from the members.",
				Required: true,
				Validators: []validator.String{
					validators.IsValidDN(),
				},
			},
			"members": schema.SetAttribute{
				MarkdownDescription: "Distinguished Names of the group members. Every member must exist. " +
					"The owner is added when missing. When unset the owner is the only member.",
				ElementType: types.StringType,
				CustomType:  customtypes.NewDNSetType(),
				Optional:    true,
				Computed:    true,
				Validators: []validator.Set{
					setvalidator.ValueStringsAre(validators.IsValidDN()),
				},
				PlanModifiers: []planmodifier.Set{
					planmodifiers.IncludeOwner("owner"),
				},
			},
			"dn": schema.StringAttribute{
				MarkdownDescription: "The distinguished name of the group.",
				Computed:            true,
				CustomType:          customtypes.DNType{},
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.UseStateForUnknown(),
				},
			},
		},
	}
}

func (r *GroupResource) Configure(ctx context.Context, req resource.ConfigureRequest, resp *resource.ConfigureResponse) {
	r.providerData = providerDataFrom(req.ProviderData, &resp.Diagnostics, "Resource")
}

func (r *GroupResource) Create(ctx context.Context, req resource.CreateRequest, resp *resource.CreateResponse) {
	var data GroupResourceModel

	// Initialize logging subsystem for consistent logging
	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Plan.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	start := time.Now()
	tflog.Debug(ctx, "Starting resource operation", map[string]any{
		"operation": "create",
		"resource":  "directory_group",
		"name":      data.Name.ValueString(),
	})
	defer logOperationResult(ctx, "create", "directory_group", start, &resp.Diagnostics)

	members, diags := helpers.SetToStrings(ctx, data.Members.SetValue)
	resp.Diagnostics.Append(diags...)
	if resp.Diagnostics.HasError() {
		return
	}

	var created *ldapclient.Group
	err := r.providerData.withSession(ctx, func(dir *ldapclient.Directory, s *ldapclient.Session) error {
		store := dir.Bind(s)
		owner := data.Owner.ValueString()

		group := ldapclient.NewGroup(dir.Layout()).
			SetName(ctx, store, data.Name.ValueString()).
			SetOwner(owner).
			AddMember(ctx, store, owner)
		if description := helpers.StringValue(data.Description); description != "" {
			group.SetDescription(description)
		}
		for _, member := range members {
			if customtypes.SameDN(member, owner) {
				continue
			}
			group.AddMember(ctx, store, member)
		}

		if _, err := group.Result(); err != nil {
			return err
		}
		if err := dir.Insert(ctx, s, group); err != nil {
			return err
		}

		var err error
		created, err = dir.FindGroup(ctx, s, group.Path())
		return err
	})
	if err != nil {
		addDirectoryError(&resp.Diagnostics, "Error Creating Group", err, groupFieldAttributes)
		return
	}

	tflog.Debug(ctx, "Created directory group", map[string]any{
		"dn":      created.DN(),
		"members": len(created.Members()),
	})

	resp.Diagnostics.Append(r.updateModelFromGroup(&data, created)...)
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *GroupResource) Read(ctx context.Context, req resource.ReadRequest, resp *resource.ReadResponse) {
	var data GroupResourceModel

	// Initialize logging subsystem for consistent logging
	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.State.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	tflog.Debug(ctx, "Reading directory group", map[string]any{
		"dn": data.ID.ValueString(),
	})

	entryPath, err := ldapclient.ParsePath(data.ID.ValueString())
	if err != nil {
		resp.Diagnostics.AddError("Error Reading Group", "The stored ID is not a valid DN: "+err.Error())
		return
	}

	var group *ldapclient.Group
	err = r.providerData.withSession(ctx, func(dir *ldapclient.Directory, s *ldapclient.Session) error {
		var err error
		group, err = dir.FindGroup(ctx, s, entryPath)
		return err
	})
	if ldapclient.IsNotFoundError(err) {
		tflog.Info(ctx, "Directory group no longer exists, removing from state", map[string]any{
			"dn": entryPath.String(),
		})
		resp.State.RemoveResource(ctx)
		return
	}
	if err != nil {
		addDirectoryError(&resp.Diagnostics, "Error Reading Group", err, groupFieldAttributes)
		return
	}

	resp.Diagnostics.Append(r.updateModelFromGroup(&data, group)...)
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *GroupResource) Update(ctx context.Context, req resource.UpdateRequest, resp *resource.UpdateResponse) {
	var data, state GroupResourceModel

	// Initialize logging subsystem for consistent logging
	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Plan.Get(ctx, &data)...)
	resp.Diagnostics.Append(req.State.Get(ctx, &state)...)
	if resp.Diagnostics.HasError() {
		return
	}

	start := time.Now()
	tflog.Debug(ctx, "Starting resource operation", map[string]any{
		"operation": "update",
		"resource":  "directory_group",
		"dn":        state.ID.ValueString(),
	})
	defer logOperationResult(ctx, "update", "directory_group", start, &resp.Diagnostics)

	entryPath, err := ldapclient.ParsePath(state.ID.ValueString())
	if err != nil {
		resp.Diagnostics.AddError("Error Updating Group", "The stored ID is not a valid DN: "+err.Error())
		return
	}

	wantMembers, diags := helpers.SetToStrings(ctx, data.Members.SetValue)
	resp.Diagnostics.Append(diags...)
	if resp.Diagnostics.HasError() {
		return
	}

	var updated *ldapclient.Group
	err = r.providerData.withSession(ctx, func(dir *ldapclient.Directory, s *ldapclient.Session) error {
		group, err := dir.FindGroup(ctx, s, entryPath)
		if err != nil {
			return err
		}
		store := dir.Bind(s)

		if !data.Description.Equal(state.Description) {
			group.SetDescription(helpers.StringValue(data.Description))
		}

		// The owner goes first so the previous owner can be removed below.
		if !customtypes.SameDN(data.Owner.ValueString(), group.Owner()) {
			group.SetOwner(data.Owner.ValueString())
		}

		added, removed := helpers.Diff(group.Members(), wantMembers, customtypes.SameDN)
		for _, member := range added {
			group.AddMember(ctx, store, member)
		}
		for _, member := range removed {
			group.RemoveMember(member)
		}

		if _, err := group.Result(); err != nil {
			return err
		}

		tflog.Debug(ctx, "Applying group modifications", map[string]any{
			"dn":      group.DN(),
			"added":   len(added),
			"removed": len(removed),
			"pending": len(group.PendingModifications()),
		})
		if err := dir.ApplyModifications(ctx, s, group); err != nil {
			return err
		}
		if err := dir.Reload(ctx, s, group); err != nil {
			return err
		}
		updated = group
		return nil
	})
	if err != nil {
		addDirectoryError(&resp.Diagnostics, "Error Updating Group", err, groupFieldAttributes)
		return
	}

	resp.Diagnostics.Append(r.updateModelFromGroup(&data, updated)...)
	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *GroupResource) Delete(ctx context.Context, req resource.DeleteRequest, resp *resource.DeleteResponse) {
	var data GroupResourceModel

	// Initialize logging subsystem for consistent logging
	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.State.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	tflog.Debug(ctx, "Deleting directory group", map[string]any{
		"dn": data.ID.ValueString(),
	})

	entryPath, err := ldapclient.ParsePath(data.ID.ValueString())
	if err != nil {
		resp.Diagnostics.AddError("Error Deleting Group", "The stored ID is not a valid DN: "+err.Error())
		return
	}

	err = r.providerData.withSession(ctx, func(dir *ldapclient.Directory, s *ldapclient.Session) error {
		group, err := dir.FindGroup(ctx, s, entryPath)
		if err != nil {
			return err
		}
		return dir.Delete(ctx, s, group)
	})
	if err != nil && !ldapclient.IsNotFoundError(err) {
		addDirectoryError(&resp.Diagnostics, "Error Deleting Group", err, groupFieldAttributes)
		return
	}

	tflog.Debug(ctx, "Deleted directory group", map[string]any{
		"dn": data.ID.ValueString(),
	})
}

// ImportState accepts either the DN or the name of the group.
func (r *GroupResource) ImportState(ctx context.Context, req resource.ImportStateRequest, resp *resource.ImportStateResponse) {
	importID := strings.TrimSpace(req.ID)

	tflog.Debug(ctx, "Importing directory group", map[string]any{
		"import_id": importID,
	})

	var entryPath *ldapclient.Path
	var err error
	if strings.Contains(importID, "=") {
		entryPath, err = ldapclient.ParsePath(importID)
	} else {
		entryPath, err = r.providerData.Layout().GroupPath(importID)
	}
	if err != nil {
		resp.Diagnostics.AddError("Error Importing Group",
			"The import ID must be a group DN or name: "+err.Error())
		return
	}

	resp.Diagnostics.Append(resp.State.SetAttribute(ctx, path.Root("id"), entryPath.String())...)
}

// updateModelFromGroup copies the fetched group into the model. DN-valued
// attributes keep their configured spelling when they name the same entry.
func (r *GroupResource) updateModelFromGroup(model *GroupResourceModel, group *ldapclient.Group) diag.Diagnostics {
	model.ID = types.StringValue(group.DN())
	model.Name = types.StringValue(group.Name())
	model.Description = helpers.StringOrNull(group.Description())

	if model.Owner.IsNull() || model.Owner.IsUnknown() || !customtypes.SameDN(model.Owner.ValueString(), group.Owner()) {
		model.Owner = types.StringValue(group.Owner())
	}
	if model.DistinguishedName.IsNull() || model.DistinguishedName.IsUnknown() ||
		!customtypes.SameDN(model.DistinguishedName.ValueString(), group.DN()) {
		model.DistinguishedName = customtypes.NewDNValue(group.DN())
	}

	members, diags := customtypes.NewDNSetValue(context.Background(), group.Members())
	if diags.HasError() {
		return diags
	}
	model.Members = members
	return diags
}
