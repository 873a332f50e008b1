package provider

import (
	"context"
	"strings"
	"time"

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
)

// Ensure provider defined types fully satisfy framework interfaces.
var _ resource.Resource = &UserResource{}
var _ resource.ResourceWithConfigure = &UserResource{}
var _ resource.ResourceWithImportState = &UserResource{}

// NewUserResource creates a new instance of the user resource.
func NewUserResource() resource.Resource {
	return &UserResource{}
}

// UserResource defines the resource implementation.
type UserResource struct {
	providerData *ProviderData
}

// UserResourceModel describes the resource data model.
type UserResourceModel struct {
	ID          types.String `tfsdk:"id"`          // DN (computed)
	UID         types.String `tfsdk:"uid"`         // Required, forces replacement
	CN          types.String `tfsdk:"cn"`          // Required - first name
	SN          types.String `tfsdk:"sn"`          // Required - last name
	Mail        types.String `tfsdk:"mail"`        // Required, unique
	Description types.String `tfsdk:"description"` // Optional
	Password    types.String `tfsdk:"password"`    // Required, write-only
	// Computed attributes
	Name              types.String        `tfsdk:"name"`
	DistinguishedName customtypes.DNValue `tfsdk:"dn"`
	SID               types.String        `tfsdk:"sid"`
}

func (r *UserResource) Metadata(ctx context.Context, req resource.MetadataRequest, resp *resource.MetadataResponse) {
	resp.TypeName = req.ProviderTypeName + "_user"
}

func (r *UserResource) Schema(ctx context.Context, req resource.SchemaRequest, resp *resource.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "Manages a user entry under the people container of the directory. " +
			"The entry is created with the `inetOrgPerson` object class and named by its `uid`.",

		Attributes: map[string]schema.Attribute{
			"id": schema.StringAttribute{
				MarkdownDescription: "The distinguished name of the user.",
				Computed:            true,
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.UseStateForUnknown(),
				},
			},
			"uid": schema.StringAttribute{
				MarkdownDescription: "The login name of the user. Between 4 and 64 characters, unique within the people container. " +
					"Changing it forces a new user.",
				Required: true,
				Validators: []validator.String{
					stringvalidator.LengthBetween(4, 64),
				},
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.RequiresReplace(),
				},
			},
			"cn": schema.StringAttribute{
				MarkdownDescription: "The first name of the user.",
				Required:            true,
				Validators: []validator.String{
					stringvalidator.LengthBetween(1, 254),
				},
			},
			"sn": schema.StringAttribute{
				MarkdownDescription: "The last name of the user.",
				Required:            true,
				Validators: []validator.String{
					stringvalidator.LengthBetween(1, 254),
				},
			},
			"mail": schema.StringAttribute{
				MarkdownDescription: "The email address of the user. Must not be registered to another user.",
				Required:            true,
				Validators: []validator.String{
					stringvalidator.LengthBetween(1, 254),
				},
			},
			"description": schema.StringAttribute{
				MarkdownDescription: "A description of the user.",
				Optional:            true,
				Validators: []validator.String{
					stringvalidator.LengthBetween(1, 254),
				},
			},
			"password": schema.StringAttribute{
				MarkdownDescription: "The password of the user, between 8 and 255 characters. " +
					"The directory never returns it, so changes made outside Terraform are not detected.",
				Required:  true,
				Sensitive: true,
				Validators: []validator.String{
					stringvalidator.LengthBetween(8, 255),
				},
			},
			"name": schema.StringAttribute{
				MarkdownDescription: "The full name of the user, `cn` followed by `sn`.",
				Computed:            true,
				PlanModifiers: []planmodifier.String{
					planmodifiers.UseFullName("cn", "sn"),
				},
			},
			"dn": schema.StringAttribute{
				MarkdownDescription: "The distinguished name of the user.",
				Computed:            true,
				CustomType:          customtypes.DNType{},
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.UseStateForUnknown(),
				},
			},
			"sid": schema.StringAttribute{
				MarkdownDescription: "The Security Identifier of the user when the directory assigns one.",
				Computed:            true,
				PlanModifiers: []planmodifier.String{
					stringplanmodifier.UseStateForUnknown(),
				},
			},
		},
	}
}

func (r *UserResource) Configure(ctx context.Context, req resource.ConfigureRequest, resp *resource.ConfigureResponse) {
	r.providerData = providerDataFrom(req.ProviderData, &resp.Diagnostics, "Resource")
}

func (r *UserResource) Create(ctx context.Context, req resource.CreateRequest, resp *resource.CreateResponse) {
	var data UserResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Plan.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	start := time.Now()
	tflog.Debug(ctx, "Starting resource operation", map[string]any{
		"operation": "create",
		"resource":  "directory_user",
		"uid":       data.UID.ValueString(),
	})
	defer logOperationResult(ctx, "create", "directory_user", start, &resp.Diagnostics)

	var created *ldapclient.User
	err := r.providerData.withSession(ctx, func(dir *ldapclient.Directory, s *ldapclient.Session) error {
		store := dir.Bind(s)
		password := data.Password.ValueString()

		user := ldapclient.NewUser(dir.Layout()).
			SetUID(ctx, store, data.UID.ValueString()).
			SetCN(data.CN.ValueString()).
			SetSN(data.SN.ValueString()).
			SetMail(ctx, store, data.Mail.ValueString()).
			SetPassword(password, password)
		if description := helpers.StringValue(data.Description); description != "" {
			user.SetDescription(description)
		}

		if _, err := user.Result(); err != nil {
			return err
		}
		if err := dir.Insert(ctx, s, user); err != nil {
			return err
		}

		var err error
		created, err = dir.FindUser(ctx, s, user.Path())
		return err
	})
	if err != nil {
		addDirectoryError(&resp.Diagnostics, "Error Creating User", err, userFieldAttributes)
		return
	}

	tflog.Debug(ctx, "Created directory user", map[string]any{
		"dn": created.DN(),
	})

	r.updateModelFromUser(&data, created)

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *UserResource) Read(ctx context.Context, req resource.ReadRequest, resp *resource.ReadResponse) {
	var data UserResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.State.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	tflog.Debug(ctx, "Reading directory user", map[string]any{
		"dn": data.ID.ValueString(),
	})

	entryPath, err := ldapclient.ParsePath(data.ID.ValueString())
	if err != nil {
		resp.Diagnostics.AddError("Error Reading User", "The stored ID is not a valid DN: "+err.Error())
		return
	}

	var user *ldapclient.User
	err = r.providerData.withSession(ctx, func(dir *ldapclient.Directory, s *ldapclient.Session) error {
		var err error
		user, err = dir.FindUser(ctx, s, entryPath)
		return err
	})
	if ldapclient.IsNotFoundError(err) {
		tflog.Info(ctx, "Directory user no longer exists, removing from state", map[string]any{
			"dn": entryPath.String(),
		})
		resp.State.RemoveResource(ctx)
		return
	}
	if err != nil {
		addDirectoryError(&resp.Diagnostics, "Error Reading User", err, userFieldAttributes)
		return
	}

	r.updateModelFromUser(&data, user)

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *UserResource) Update(ctx context.Context, req resource.UpdateRequest, resp *resource.UpdateResponse) {
	var data, state UserResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.Plan.Get(ctx, &data)...)
	resp.Diagnostics.Append(req.State.Get(ctx, &state)...)
	if resp.Diagnostics.HasError() {
		return
	}

	start := time.Now()
	tflog.Debug(ctx, "Starting resource operation", map[string]any{
		"operation": "update",
		"resource":  "directory_user",
		"dn":        state.ID.ValueString(),
	})
	defer logOperationResult(ctx, "update", "directory_user", start, &resp.Diagnostics)

	entryPath, err := ldapclient.ParsePath(state.ID.ValueString())
	if err != nil {
		resp.Diagnostics.AddError("Error Updating User", "The stored ID is not a valid DN: "+err.Error())
		return
	}

	var updated *ldapclient.User
	err = r.providerData.withSession(ctx, func(dir *ldapclient.Directory, s *ldapclient.Session) error {
		user, err := dir.FindUser(ctx, s, entryPath)
		if err != nil {
			return err
		}
		store := dir.Bind(s)

		if !data.CN.Equal(state.CN) {
			user.SetCN(data.CN.ValueString())
		}
		if !data.SN.Equal(state.SN) {
			user.SetSN(data.SN.ValueString())
		}
		if !data.Mail.Equal(state.Mail) {
			user.SetMail(ctx, store, data.Mail.ValueString())
		}
		if !data.Description.Equal(state.Description) {
			if description := helpers.StringValue(data.Description); description != "" {
				user.SetDescription(description)
			} else {
				user.ClearDescription()
			}
		}
		if !data.Password.Equal(state.Password) {
			password := data.Password.ValueString()
			user.SetPassword(password, password)
		}

		if _, err := user.Result(); err != nil {
			return err
		}

		tflog.Debug(ctx, "Applying user modifications", map[string]any{
			"dn":      user.DN(),
			"pending": len(user.PendingModifications()),
		})
		if err := dir.ApplyModifications(ctx, s, user); err != nil {
			return err
		}
		if err := dir.Reload(ctx, s, user); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		addDirectoryError(&resp.Diagnostics, "Error Updating User", err, userFieldAttributes)
		return
	}

	r.updateModelFromUser(&data, updated)

	resp.Diagnostics.Append(resp.State.Set(ctx, &data)...)
}

func (r *UserResource) Delete(ctx context.Context, req resource.DeleteRequest, resp *resource.DeleteResponse) {
	var data UserResourceModel

	ctx = initializeLogging(ctx)

	resp.Diagnostics.Append(req.State.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	tflog.Debug(ctx, "Deleting directory user", map[string]any{
		"dn": data.ID.ValueString(),
	})

	entryPath, err := ldapclient.ParsePath(data.ID.ValueString())
	if err != nil {
		resp.Diagnostics.AddError("Error Deleting User", "The stored ID is not a valid DN: "+err.Error())
		return
	}

	err = r.providerData.withSession(ctx, func(dir *ldapclient.Directory, s *ldapclient.Session) error {
		user, err := dir.FindUser(ctx, s, entryPath)
		if err != nil {
			return err
		}
		return dir.Delete(ctx, s, user)
	})
	if err != nil && !ldapclient.IsNotFoundError(err) {
		addDirectoryError(&resp.Diagnostics, "Error Deleting User", err, userFieldAttributes)
	}
}

// ImportState accepts either the DN or the uid of the user.
func (r *UserResource) ImportState(ctx context.Context, req resource.ImportStateRequest, resp *resource.ImportStateResponse) {
	importID := strings.TrimSpace(req.ID)

	tflog.Debug(ctx, "Importing directory user", map[string]any{
		"import_id": importID,
	})

	var entryPath *ldapclient.Path
	var err error
	if strings.Contains(importID, "=") {
		entryPath, err = ldapclient.ParsePath(importID)
	} else {
		entryPath, err = r.providerData.Layout().UserPath(importID)
	}
	if err != nil {
		resp.Diagnostics.AddError("Error Importing User",
			"The import ID must be a user DN or uid: "+err.Error())
		return
	}

	resp.Diagnostics.Append(resp.State.SetAttribute(ctx, path.Root("id"), entryPath.String())...)
}

// updateModelFromUser copies the fetched user into the model. The password
// is write-only and keeps its planned value.
func (r *UserResource) updateModelFromUser(model *UserResourceModel, user *ldapclient.User) {
	model.ID = types.StringValue(user.DN())
	model.UID = types.StringValue(user.UID())
	model.CN = types.StringValue(user.CN())
	model.SN = types.StringValue(user.SN())
	model.Mail = types.StringValue(user.Mail())
	model.Description = helpers.StringOrNull(user.Description())
	model.Name = types.StringValue(user.Name())
	model.SID = types.StringValue(user.ObjectSID())

	if model.DistinguishedName.IsNull() || model.DistinguishedName.IsUnknown() ||
		!customtypes.SameDN(model.DistinguishedName.ValueString(), user.DN()) {
		model.DistinguishedName = customtypes.NewDNValue(user.DN())
	}
}

// logOperationResult logs the outcome of a resource operation started at start.
func logOperationResult(ctx context.Context, operation, resourceType string, start time.Time, diags *diag.Diagnostics) {
	fields := map[string]any{
		"operation":   operation,
		"resource":    resourceType,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if diags.HasError() {
		tflog.Error(ctx, "Resource operation failed", fields)
		return
	}
	tflog.Info(ctx, "Resource operation completed", fields)
}
