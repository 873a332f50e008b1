package provider

import (
	"context"
	"fmt"

	"github.com/hashicorp/terraform-plugin-framework/diag"

	ldapclient "github.com/isometry/terraform-provider-directory/internal/ldap"
)

// ProviderData is shared with every resource and data source.
type ProviderData struct {
	Sessions *ldapclient.SessionManager
	Metrics  *ldapclient.Metrics
}

// NewProviderData creates provider data around a session manager. metrics
// may be nil.
func NewProviderData(sessions *ldapclient.SessionManager, metrics *ldapclient.Metrics) *ProviderData {
	return &ProviderData{
		Sessions: sessions,
		Metrics:  metrics,
	}
}

// Layout returns the directory layout of the configured provider.
func (pd *ProviderData) Layout() *ldapclient.Layout {
	return pd.Sessions.Layout()
}

// withSession opens a session, runs fn against it and releases it.
func (pd *ProviderData) withSession(ctx context.Context, fn func(dir *ldapclient.Directory, s *ldapclient.Session) error) error {
	s, err := pd.Sessions.Open(ctx)
	if err != nil {
		return err
	}
	defer pd.Sessions.Release(s)

	dir := ldapclient.NewDirectory(pd.Layout(), ldapLogger(ctx), pd.Metrics)
	return fn(dir, s)
}

// providerDataFrom extracts ProviderData during resource and data source
// configuration. It returns nil without diagnostics when the provider has not
// been configured yet.
func providerDataFrom(data any, diags *diag.Diagnostics, kind string) *ProviderData {
	if data == nil {
		return nil
	}

	pd, ok := data.(*ProviderData)
	if !ok {
		diags.AddError(
			fmt.Sprintf("Unexpected %s Configure Type", kind),
			fmt.Sprintf("Expected *provider.ProviderData, got: %T. Please report this issue to the provider developers.", data),
		)
		return nil
	}
	return pd
}
