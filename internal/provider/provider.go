package provider

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/terraform-plugin-framework-validators/providervalidator"
	"github.com/hashicorp/terraform-plugin-framework-validators/stringvalidator"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/diag"
	"github.com/hashicorp/terraform-plugin-framework/path"
	"github.com/hashicorp/terraform-plugin-framework/provider"
	"github.com/hashicorp/terraform-plugin-framework/provider/schema"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/schema/validator"
	"github.com/hashicorp/terraform-plugin-framework/types"
	"github.com/hashicorp/terraform-plugin-log/tflog"

	ldapclient "github.com/isometry/terraform-provider-directory/internal/ldap"
	"github.com/isometry/terraform-provider-directory/internal/provider/validators"
)

// Ensure DirectoryProvider satisfies various provider interfaces.
var _ provider.Provider = &DirectoryProvider{}
var _ provider.ProviderWithConfigValidators = &DirectoryProvider{}

// DirectoryProvider defines the provider implementation.
type DirectoryProvider struct {
	// version is set to the provider version on release, "dev" when the
	// provider is built and ran locally, and "test" when running acceptance
	// testing.
	version string
}

// DirectoryProviderModel describes the provider data model.
type DirectoryProviderModel struct {
	// Connection settings
	LdapURL   types.String `tfsdk:"ldap_url"`
	BaseDN    types.String `tfsdk:"base_dn"`
	PeopleRDN types.String `tfsdk:"people_rdn"`
	GroupsRDN types.String `tfsdk:"groups_rdn"`

	// Authentication settings
	AuthMethod types.String `tfsdk:"auth_method"`
	Username   types.String `tfsdk:"username"`
	Password   types.String `tfsdk:"password"`

	// Kerberos settings (optional)
	KerberosRealm  types.String `tfsdk:"kerberos_realm"`
	KerberosKeytab types.String `tfsdk:"kerberos_keytab"`
	KerberosConfig types.String `tfsdk:"kerberos_config"`
	KerberosCCache types.String `tfsdk:"kerberos_ccache"`
	KerberosSPN    types.String `tfsdk:"kerberos_spn"`

	// TLS settings
	UseTLS            types.Bool   `tfsdk:"use_tls"`
	SkipTLSVerify     types.Bool   `tfsdk:"skip_tls_verify"`
	TLSCACertFile     types.String `tfsdk:"tls_ca_cert_file"`
	TLSCACert         types.String `tfsdk:"tls_ca_cert"`
	TLSClientCertFile types.String `tfsdk:"tls_client_cert_file"`
	TLSClientKeyFile  types.String `tfsdk:"tls_client_key_file"`

	ConnectTimeout types.Int64 `tfsdk:"connect_timeout"`

	// Retry settings
	MaxRetries     types.Int64 `tfsdk:"max_retries"`
	InitialBackoff types.Int64 `tfsdk:"initial_backoff"`
	MaxBackoff     types.Int64 `tfsdk:"max_backoff"`

	BootstrapContainers types.Bool `tfsdk:"bootstrap_containers"`
}

func (p *DirectoryProvider) Metadata(ctx context.Context, req provider.MetadataRequest, resp *provider.MetadataResponse) {
	resp.TypeName = "directory"
	resp.Version = p.version
}

func (p *DirectoryProvider) Schema(ctx context.Context, req provider.SchemaRequest, resp *provider.SchemaResponse) {
	resp.Schema = schema.Schema{
		MarkdownDescription: "The directory provider manages users and groups stored in an LDAP directory. " +
			"Users live under the people container and groups under the groups container of the configured base DN.",
		Attributes: map[string]schema.Attribute{
			// Connection settings
			"ldap_url": schema.StringAttribute{
				MarkdownDescription: "LDAP/LDAPS URL of the directory server (e.g., `ldaps://ldap.example.com:636`). " +
					"Can be set via the `DIRECTORY_LDAP_URL` environment variable.",
				Optional: true,
				Validators: []validator.String{
					stringvalidator.LengthAtLeast(1),
				},
			},
			"base_dn": schema.StringAttribute{
				MarkdownDescription: "Root DN of the managed subtree (e.g., `dc=example,dc=com`). " +
					"Can be set via the `DIRECTORY_BASE_DN` environment variable.",
				Optional: true,
				Validators: []validator.String{
					validators.IsValidDN(),
				},
			},
			"people_rdn": schema.StringAttribute{
				MarkdownDescription: "RDN of the container holding users, relative to `base_dn`. Defaults to `ou=People`. " +
					"Can be set via the `DIRECTORY_PEOPLE_RDN` environment variable.",
				Optional: true,
				Validators: []validator.String{
					validators.IsValidRDN(),
				},
			},
			"groups_rdn": schema.StringAttribute{
				MarkdownDescription: "RDN of the container holding groups, relative to `base_dn`. Defaults to `ou=groups`. " +
					"Can be set via the `DIRECTORY_GROUPS_RDN` environment variable.",
				Optional: true,
				Validators: []validator.String{
					validators.IsValidRDN(),
				},
			},

			// Authentication settings
			"auth_method": schema.StringAttribute{
				MarkdownDescription: "Authentication method: `simple`, `kerberos` or `external`. " +
					"When unset the method is chosen from the credentials present. " +
					"Can be set via the `DIRECTORY_AUTH_METHOD` environment variable.",
				Optional: true,
				Validators: []validator.String{
					stringvalidator.OneOfCaseInsensitive("simple", "kerberos", "external"),
				},
			},
			"username": schema.StringAttribute{
				MarkdownDescription: "Bind DN for simple authentication, or the principal name for Kerberos. " +
					"Can be set via the `DIRECTORY_USERNAME` environment variable.",
				Optional: true,
			},
			"password": schema.StringAttribute{
				MarkdownDescription: "Password for authentication. " +
					"Can be set via the `DIRECTORY_PASSWORD` environment variable.",
				Optional:  true,
				Sensitive: true,
			},

			// Kerberos settings
			"kerberos_realm": schema.StringAttribute{
				MarkdownDescription: "Kerberos realm for GSSAPI authentication (e.g., `EXAMPLE.COM`). " +
					"Can be set via the `DIRECTORY_KERBEROS_REALM` environment variable.",
				Optional: true,
			},
			"kerberos_keytab": schema.StringAttribute{
				MarkdownDescription: "Path to Kerberos keytab file for authentication. " +
					"Can be set via the `DIRECTORY_KERBEROS_KEYTAB` environment variable.",
				Optional: true,
			},
			"kerberos_config": schema.StringAttribute{
				MarkdownDescription: "Path to Kerberos configuration file. Defaults to system default. " +
					"Can be set via the `DIRECTORY_KERBEROS_CONFIG` environment variable.",
				Optional: true,
			},
			"kerberos_ccache": schema.StringAttribute{
				MarkdownDescription: "Path to Kerberos credential cache file for authentication. " +
					"Can be set via the `DIRECTORY_KERBEROS_CCACHE` environment variable.",
				Optional: true,
			},
			"kerberos_spn": schema.StringAttribute{
				MarkdownDescription: "Override Service Principal Name (SPN) for Kerberos authentication. " +
					"Format: `ldap/<hostname>`. " +
					"Can be set via the `DIRECTORY_KERBEROS_SPN` environment variable.",
				Optional: true,
			},

			// TLS settings
			"use_tls": schema.BoolAttribute{
				MarkdownDescription: "Upgrade plain `ldap://` connections with StartTLS. Defaults to `true`. " +
					"Can be set via the `DIRECTORY_USE_TLS` environment variable.",
				Optional: true,
			},
			"skip_tls_verify": schema.BoolAttribute{
				MarkdownDescription: "Skip TLS certificate verification. Not recommended for production. Defaults to `false`. " +
					"Can be set via the `DIRECTORY_SKIP_TLS_VERIFY` environment variable.",
				Optional: true,
			},
			"tls_ca_cert_file": schema.StringAttribute{
				MarkdownDescription: "Path to custom CA certificate file for TLS verification. " +
					"Can be set via the `DIRECTORY_TLS_CA_CERT_FILE` environment variable.",
				Optional: true,
			},
			"tls_ca_cert": schema.StringAttribute{
				MarkdownDescription: "Custom CA certificate content for TLS verification. " +
					"Can be set via the `DIRECTORY_TLS_CA_CERT` environment variable.",
				Optional:  true,
				Sensitive: true,
			},
			"tls_client_cert_file": schema.StringAttribute{
				MarkdownDescription: "Path to client certificate file for mutual TLS or SASL EXTERNAL authentication. " +
					"Can be set via the `DIRECTORY_TLS_CLIENT_CERT_FILE` environment variable.",
				Optional: true,
			},
			"tls_client_key_file": schema.StringAttribute{
				MarkdownDescription: "Path to client private key file for mutual TLS authentication. " +
					"Can be set via the `DIRECTORY_TLS_CLIENT_KEY_FILE` environment variable.",
				Optional:  true,
				Sensitive: true,
			},

			"connect_timeout": schema.Int64Attribute{
				MarkdownDescription: "Connection and request timeout in seconds. Defaults to `30`. " +
					"Can be set via the `DIRECTORY_CONNECT_TIMEOUT` environment variable.",
				Optional: true,
			},

			// Retry settings
			"max_retries": schema.Int64Attribute{
				MarkdownDescription: "Maximum number of retry attempts when opening a session. Defaults to `3`. " +
					"Can be set via the `DIRECTORY_MAX_RETRIES` environment variable.",
				Optional: true,
			},
			"initial_backoff": schema.Int64Attribute{
				MarkdownDescription: "Initial backoff delay in milliseconds for retry attempts. Defaults to `500`. " +
					"Can be set via the `DIRECTORY_INITIAL_BACKOFF` environment variable.",
				Optional: true,
			},
			"max_backoff": schema.Int64Attribute{
				MarkdownDescription: "Maximum backoff delay in seconds for retry attempts. Defaults to `30`. " +
					"Can be set via the `DIRECTORY_MAX_BACKOFF` environment variable.",
				Optional: true,
			},

			"bootstrap_containers": schema.BoolAttribute{
				MarkdownDescription: "Create the people and groups containers under `base_dn` when they are missing. Defaults to `false`. " +
					"Can be set via the `DIRECTORY_BOOTSTRAP_CONTAINERS` environment variable.",
				Optional: true,
			},
		},
	}
}

// ConfigValidators implements provider.ProviderWithConfigValidators.
func (p *DirectoryProvider) ConfigValidators(ctx context.Context) []provider.ConfigValidator {
	return []provider.ConfigValidator{
		// TLS cert file and cert content are mutually exclusive
		providervalidator.Conflicting(
			path.MatchRoot("tls_ca_cert_file"),
			path.MatchRoot("tls_ca_cert"),
		),
		// A keytab and a credential cache are alternative Kerberos credentials
		providervalidator.Conflicting(
			path.MatchRoot("kerberos_keytab"),
			path.MatchRoot("kerberos_ccache"),
		),
	}
}

func (p *DirectoryProvider) Configure(ctx context.Context, req provider.ConfigureRequest, resp *provider.ConfigureResponse) {
	var data DirectoryProviderModel

	resp.Diagnostics.Append(req.Config.Get(ctx, &data)...)
	if resp.Diagnostics.HasError() {
		return
	}

	ctx = p.configureLogging(ctx)

	tflog.Info(ctx, "Configuring directory provider", map[string]any{
		"version": p.version,
	})

	config := p.buildConnectionConfig(&data, &resp.Diagnostics)
	if resp.Diagnostics.HasError() {
		return
	}

	ctx = initializeLogging(ctx)

	start := time.Now()
	sessions, err := ldapclient.NewSessionManager(config,
		ldapclient.WithLogger(ldapLogger(ctx)),
	)
	if err != nil {
		tflog.Error(ctx, "Failed to create session manager", map[string]any{
			"error":       err.Error(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		resp.Diagnostics.AddError(
			"Unable to Create Directory Client",
			"The provider configuration is not valid.\n\n"+
				"Configuration Error: "+err.Error(),
		)
		return
	}

	providerData := NewProviderData(sessions, nil)

	// Open one session up front so bad credentials fail at configure time.
	bootstrap := p.getBoolValue(data.BootstrapContainers, "DIRECTORY_BOOTSTRAP_CONTAINERS", false)
	err = providerData.withSession(ctx, func(dir *ldapclient.Directory, s *ldapclient.Session) error {
		tflog.Info(ctx, "Session opened successfully", map[string]any{
			"principal":   s.Principal(),
			"duration_ms": time.Since(start).Milliseconds(),
		})

		if !bootstrap {
			return nil
		}
		created, err := dir.EnsureContainers(ctx, s)
		if err != nil {
			return err
		}
		for _, c := range created {
			tflog.Info(ctx, "Created directory container", map[string]any{
				"dn": c.String(),
			})
		}
		return nil
	})
	if err != nil {
		tflog.Error(ctx, "Connection test failed", map[string]any{
			"error":       err.Error(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		summary := "Unable to Connect to Directory"
		if ldapclient.IsAuthenticationError(err) {
			summary = "Authentication Failed"
		}
		resp.Diagnostics.AddError(
			summary,
			"The provider could not open a session with the directory server. "+
				"Please verify your configuration settings.\n\n"+
				"Error: "+err.Error(),
		)
		return
	}

	tflog.Info(ctx, "Directory provider configured successfully", map[string]any{
		"base_dn": config.BaseDN,
	})

	resp.DataSourceData = providerData
	resp.ResourceData = providerData
}

// configureLogging sets up logging configuration based on environment variables.
func (p *DirectoryProvider) configureLogging(ctx context.Context) context.Context {
	ctx = tflog.SetField(ctx, "provider", "directory")
	ctx = tflog.SetField(ctx, "provider_version", p.version)
	ctx = tflog.MaskFieldValuesWithFieldKeys(ctx, "password", "credential")

	tflog.Debug(ctx, "Directory provider logging configured")

	return ctx
}

// buildConnectionConfig constructs the session configuration from provider config and environment variables.
func (p *DirectoryProvider) buildConnectionConfig(data *DirectoryProviderModel, diags *diag.Diagnostics) *ldapclient.ConnectionConfig {
	config := ldapclient.DefaultConfig()

	config.URL = p.getStringValue(data.LdapURL, "DIRECTORY_LDAP_URL")
	config.BaseDN = p.getStringValue(data.BaseDN, "DIRECTORY_BASE_DN")

	if config.URL == "" {
		diags.AddAttributeError(
			path.Root("ldap_url"),
			"Missing Directory URL",
			"The provider cannot connect without a server URL. "+
				"Set the ldap_url attribute or the DIRECTORY_LDAP_URL environment variable.",
		)
	}
	if config.BaseDN == "" {
		diags.AddAttributeError(
			path.Root("base_dn"),
			"Missing Base DN",
			"The provider needs the root of the managed subtree. "+
				"Set the base_dn attribute or the DIRECTORY_BASE_DN environment variable.",
		)
	}

	if peopleRDN := p.getStringValue(data.PeopleRDN, "DIRECTORY_PEOPLE_RDN"); peopleRDN != "" {
		config.PeopleRDN = peopleRDN
	}
	if groupsRDN := p.getStringValue(data.GroupsRDN, "DIRECTORY_GROUPS_RDN"); groupsRDN != "" {
		config.GroupsRDN = groupsRDN
	}

	config.AuthMethodName = strings.ToLower(p.getStringValue(data.AuthMethod, "DIRECTORY_AUTH_METHOD"))
	config.Username = p.getStringValue(data.Username, "DIRECTORY_USERNAME")
	config.Password = p.getStringValue(data.Password, "DIRECTORY_PASSWORD")
	config.KerberosRealm = p.getStringValue(data.KerberosRealm, "DIRECTORY_KERBEROS_REALM")
	config.KerberosKeytab = p.getStringValue(data.KerberosKeytab, "DIRECTORY_KERBEROS_KEYTAB")
	config.KerberosConfig = p.getStringValue(data.KerberosConfig, "DIRECTORY_KERBEROS_CONFIG")
	config.KerberosCCache = p.getStringValue(data.KerberosCCache, "DIRECTORY_KERBEROS_CCACHE")
	config.KerberosSPN = p.getStringValue(data.KerberosSPN, "DIRECTORY_KERBEROS_SPN")

	config.UseTLS = p.getBoolValue(data.UseTLS, "DIRECTORY_USE_TLS", true)
	config.SkipTLSVerify = p.getBoolValue(data.SkipTLSVerify, "DIRECTORY_SKIP_TLS_VERIFY", false)
	config.TLSCACertFile = p.getStringValue(data.TLSCACertFile, "DIRECTORY_TLS_CA_CERT_FILE")
	config.TLSCACert = p.getStringValue(data.TLSCACert, "DIRECTORY_TLS_CA_CERT")
	config.TLSClientCertFile = p.getStringValue(data.TLSClientCertFile, "DIRECTORY_TLS_CLIENT_CERT_FILE")
	config.TLSClientKeyFile = p.getStringValue(data.TLSClientKeyFile, "DIRECTORY_TLS_CLIENT_KEY_FILE")

	if config.AuthMethodName == "" && !config.HasAuthentication() {
		diags.AddError(
			"Missing Authentication Configuration",
			"Either simple, Kerberos or certificate authentication must be configured. "+
				"For simple bind: provide 'username' and 'password' or set DIRECTORY_USERNAME and DIRECTORY_PASSWORD. "+
				"For Kerberos: provide 'kerberos_realm' with a password, 'kerberos_keytab' or 'kerberos_ccache'. "+
				"For SASL EXTERNAL: provide 'tls_client_cert_file' and 'tls_client_key_file'.",
		)
		return config
	}

	if connectTimeout := p.getInt64Value(data.ConnectTimeout, "DIRECTORY_CONNECT_TIMEOUT", 30); connectTimeout > 0 {
		config.Timeout = time.Duration(connectTimeout) * time.Second
	}

	if maxRetries := p.getInt64Value(data.MaxRetries, "DIRECTORY_MAX_RETRIES", 3); maxRetries >= 0 {
		config.MaxRetries = int(maxRetries)
	}

	if initialBackoff := p.getInt64Value(data.InitialBackoff, "DIRECTORY_INITIAL_BACKOFF", 500); initialBackoff > 0 {
		config.InitialBackoff = time.Duration(initialBackoff) * time.Millisecond
	}

	if maxBackoff := p.getInt64Value(data.MaxBackoff, "DIRECTORY_MAX_BACKOFF", 30); maxBackoff > 0 {
		config.MaxBackoff = time.Duration(maxBackoff) * time.Second
	}

	return config
}

// Helper functions for configuration value resolution

func (p *DirectoryProvider) getStringValue(configValue types.String, envVar string) string {
	if !configValue.IsNull() && configValue.ValueString() != "" {
		return configValue.ValueString()
	}
	return os.Getenv(envVar)
}

func (p *DirectoryProvider) getBoolValue(configValue types.Bool, envVar string, defaultValue bool) bool {
	if !configValue.IsNull() {
		return configValue.ValueBool()
	}
	if envValue := os.Getenv(envVar); envValue != "" {
		if parsed, err := strconv.ParseBool(envValue); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (p *DirectoryProvider) getInt64Value(configValue types.Int64, envVar string, defaultValue int64) int64 {
	if !configValue.IsNull() {
		return configValue.ValueInt64()
	}
	if envValue := os.Getenv(envVar); envValue != "" {
		if parsed, err := strconv.ParseInt(envValue, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (p *DirectoryProvider) Resources(ctx context.Context) []func() resource.Resource {
	return []func() resource.Resource{
		NewUserResource,
		NewGroupResource,
	}
}

func (p *DirectoryProvider) DataSources(ctx context.Context) []func() datasource.DataSource {
	return []func() datasource.DataSource{
		NewUserDataSource,
		NewGroupDataSource,
	}
}

func New(version string) func() provider.Provider {
	return func() provider.Provider {
		return &DirectoryProvider{
			version: version,
		}
	}
}
