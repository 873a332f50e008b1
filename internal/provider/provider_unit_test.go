package provider_test

import (
	"strings"
	"testing"

	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/provider"
	"github.com/hashicorp/terraform-plugin-framework/providerserver"
	"github.com/hashicorp/terraform-plugin-framework/resource"

	this "github.com/isometry/terraform-provider-directory/internal/provider"
)

// TestProviderMetadata tests the provider metadata.
func TestProviderMetadata(t *testing.T) {
	p := this.New("test")()

	req := provider.MetadataRequest{}
	resp := &provider.MetadataResponse{}

	p.Metadata(t.Context(), req, resp)

	if resp.TypeName != "directory" {
		t.Errorf("Expected TypeName 'directory', got %s", resp.TypeName)
	}

	if resp.Version != "test" {
		t.Errorf("Expected Version 'test', got %s", resp.Version)
	}
}

// TestProviderSchema tests the provider schema.
func TestProviderSchema(t *testing.T) {
	p := this.New("test")()

	req := provider.SchemaRequest{}
	resp := &provider.SchemaResponse{}

	p.Schema(t.Context(), req, resp)

	if resp.Diagnostics.HasError() {
		t.Fatalf("Schema creation failed: %v", resp.Diagnostics)
	}

	expectedAttributes := []string{
		"ldap_url", "base_dn", "people_rdn", "groups_rdn",
		"auth_method", "username", "password",
		"kerberos_realm", "kerberos_keytab", "kerberos_config", "kerberos_ccache", "kerberos_spn",
		"use_tls", "skip_tls_verify", "tls_ca_cert_file", "tls_ca_cert",
		"tls_client_cert_file", "tls_client_key_file",
		"connect_timeout", "max_retries", "initial_backoff", "max_backoff",
		"bootstrap_containers",
	}

	for _, attr := range expectedAttributes {
		if _, exists := resp.Schema.Attributes[attr]; !exists {
			t.Errorf("Expected attribute %s not found in schema", attr)
		}
	}

	if len(resp.Schema.Attributes) != len(expectedAttributes) {
		t.Errorf("Expected %d attributes, got %d", len(expectedAttributes), len(resp.Schema.Attributes))
	}

	for _, name := range []string{"password", "tls_ca_cert", "tls_client_key_file"} {
		if !resp.Schema.Attributes[name].IsSensitive() {
			t.Errorf("Expected attribute %s to be sensitive", name)
		}
	}
}

// TestProviderResources tests the provider resources.
func TestProviderResources(t *testing.T) {
	p := this.New("test")()

	resources := p.Resources(t.Context())

	expectedResources := []string{
		"directory_user",
		"directory_group",
	}

	if len(resources) != len(expectedResources) {
		t.Fatalf("Expected %d resources, got %d", len(expectedResources), len(resources))
	}

	for i, resourceFunc := range resources {
		r := resourceFunc()
		if r == nil {
			t.Fatalf("Resource function %d returned nil", i)
		}

		resp := &resource.MetadataResponse{}
		r.Metadata(t.Context(), resource.MetadataRequest{ProviderTypeName: "directory"}, resp)
		if resp.TypeName != expectedResources[i] {
			t.Errorf("Expected resource %s, got %s", expectedResources[i], resp.TypeName)
		}
	}
}

// TestProviderDataSources tests the provider data sources.
func TestProviderDataSources(t *testing.T) {
	p := this.New("test")()

	dataSources := p.DataSources(t.Context())

	expectedDataSources := []string{
		"directory_user",
		"directory_group",
	}

	if len(dataSources) != len(expectedDataSources) {
		t.Fatalf("Expected %d data sources, got %d", len(expectedDataSources), len(dataSources))
	}

	for i, dataSourceFunc := range dataSources {
		d := dataSourceFunc()
		if d == nil {
			t.Fatalf("Data source function %d returned nil", i)
		}

		resp := &datasource.MetadataResponse{}
		d.Metadata(t.Context(), datasource.MetadataRequest{ProviderTypeName: "directory"}, resp)
		if resp.TypeName != expectedDataSources[i] {
			t.Errorf("Expected data source %s, got %s", expectedDataSources[i], resp.TypeName)
		}
	}
}

// TestProviderConfigValidators tests the provider config validators.
func TestProviderConfigValidators(t *testing.T) {
	p, ok := this.New("test")().(provider.ProviderWithConfigValidators)
	if !ok {
		t.Fatal("Provider does not implement ProviderWithConfigValidators")
	}

	validators := p.ConfigValidators(t.Context())

	if len(validators) != 2 {
		t.Errorf("Expected 2 config validators, got %d", len(validators))
	}

	for i, validator := range validators {
		if validator == nil {
			t.Errorf("Config validator %d is nil", i)
		}
	}
}

// TestNewProvider tests the New provider function.
func TestNewProvider(t *testing.T) {
	testCases := []struct {
		name    string
		version string
	}{
		{name: "test version", version: "test"},
		{name: "dev version", version: "dev"},
		{name: "release version", version: "1.0.0"},
		{name: "empty version", version: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			providerFunc := this.New(tc.version)
			if providerFunc == nil {
				t.Fatal("New() returned nil")
			}

			p := providerFunc()
			if _, ok := p.(*this.DirectoryProvider); !ok {
				t.Fatalf("Provider is not of type *DirectoryProvider, got %T", p)
			}

			resp := &provider.MetadataResponse{}
			p.Metadata(t.Context(), provider.MetadataRequest{}, resp)
			if resp.Version != tc.version {
				t.Errorf("Expected version %s, got %s", tc.version, resp.Version)
			}
		})
	}
}

// TestProviderServer tests provider server creation.
func TestProviderServer(t *testing.T) {
	serverFactory := providerserver.NewProtocol6WithError(this.New("test")())

	server, err := serverFactory()
	if err != nil {
		t.Fatalf("Failed to create provider server: %v", err)
	}

	if server == nil {
		t.Fatal("Provider server is nil")
	}
}

// TestProviderEnvironmentVariables checks every configurable attribute
// documents its environment variable.
func TestProviderEnvironmentVariables(t *testing.T) {
	p := this.New("test")()
	resp := &provider.SchemaResponse{}
	p.Schema(t.Context(), provider.SchemaRequest{}, resp)

	for name, attr := range resp.Schema.Attributes {
		envVar := "DIRECTORY_" + strings.ToUpper(name)
		if !strings.Contains(attr.GetMarkdownDescription(), envVar) {
			t.Errorf("Attribute %s does not document %s", name, envVar)
		}
	}
}
