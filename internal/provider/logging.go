package provider

import (
	"context"

	"github.com/hashicorp/terraform-plugin-log/tflog"

	ldapclient "github.com/isometry/terraform-provider-directory/internal/ldap"
)

const (
	providerSubsystem = "provider"
	ldapSubsystem     = "ldap"
)

// initializeLogging initializes the provider and ldap subsystems for consistent logging.
// This should be called at the beginning of each data source Read method
// and resource Create/Read/Update/Delete methods.
func initializeLogging(ctx context.Context) context.Context {
	// Pattern: TF_LOG_PROVIDER_DIRECTORY_<SUBSYSTEM>
	ctx = tflog.NewSubsystem(ctx, providerSubsystem,
		tflog.WithLevelFromEnv("TF_LOG_PROVIDER_DIRECTORY_PROVIDER"))
	return tflog.NewSubsystem(ctx, ldapSubsystem,
		tflog.WithLevelFromEnv("TF_LOG_PROVIDER_DIRECTORY_LDAP"))
}

// ldapLogger returns a directory logger writing to the ldap subsystem of ctx.
func ldapLogger(ctx context.Context) ldapclient.Logger {
	return ldapclient.NewTFLogger(ctx, ldapSubsystem)
}
