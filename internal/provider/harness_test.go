package provider

import (
	"context"
	"strings"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-framework/resource"
	"github.com/hashicorp/terraform-plugin-framework/tfsdk"
	"github.com/hashicorp/terraform-plugin-go/tftypes"
	"github.com/stretchr/testify/require"

	ldapclient "github.com/isometry/terraform-provider-directory/internal/ldap"
	"github.com/isometry/terraform-provider-directory/internal/ldap/ldaptest"
)

const (
	testBaseDN  = "dc=example,dc=com"
	testAdminDN = "cn=admin,dc=example,dc=com"
)

// newTestServer returns an in-memory directory holding the root, the
// people and groups containers and entries.
func newTestServer(entries ...*ldap.Entry) *ldaptest.Server {
	seed := []*ldap.Entry{
		ldap.NewEntry(testBaseDN, map[string][]string{"objectClass": {"top", "domain"}, "dc": {"example"}}),
		ldap.NewEntry("ou=People,"+testBaseDN, map[string][]string{"objectClass": {"top", "organizationalUnit"}, "ou": {"People"}}),
		ldap.NewEntry("ou=groups,"+testBaseDN, map[string][]string{"objectClass": {"top", "organizationalUnit"}, "ou": {"groups"}}),
	}
	return ldaptest.NewServer(append(seed, entries...)...)
}

func testUserDN(uid string) string {
	return "uid=" + uid + ",ou=People," + testBaseDN
}

func testGroupDN(name string) string {
	return "cn=" + name + ",ou=groups," + testBaseDN
}

func testUserEntry(uid string) *ldap.Entry {
	return ldap.NewEntry(testUserDN(uid), map[string][]string{
		"objectClass": {"top", "person", "organizationalPerson", "inetOrgPerson"},
		"uid":         {uid},
		"cn":          {strings.ToUpper(uid[:1]) + uid[1:]},
		"sn":          {"Tester"},
		"mail":        {uid + "@example.com"},
	})
}

func testGroupEntry(name, owner string, members ...string) *ldap.Entry {
	return ldap.NewEntry(testGroupDN(name), map[string][]string{
		"objectClass":  {"top", "groupOfUniqueNames"},
		"cn":           {name},
		"owner":        {owner},
		"uniqueMember": members,
	})
}

// newTestProviderData wires a session manager to srv. Every session gets its
// own connection so releasing one leaves the others usable.
func newTestProviderData(t *testing.T, srv *ldaptest.Server) *ProviderData {
	t.Helper()

	config := ldapclient.DefaultConfig()
	config.URL = "ldap://ldap.example.com"
	config.BaseDN = testBaseDN
	config.Username = testAdminDN
	config.Password = "secret"
	config.UseTLS = false
	config.MaxRetries = 0

	sessions, err := ldapclient.NewSessionManager(config,
		ldapclient.WithDialer(func(ctx context.Context, server *ldapclient.ServerInfo, cfg *ldapclient.ConnectionConfig) (ldapclient.Conn, error) {
			return srv.Dial(), nil
		}),
	)
	require.NoError(t, err)
	t.Cleanup(sessions.Close)

	return NewProviderData(sessions, nil)
}

// objectValue builds a value of typ from values. Attributes not named in
// values are null.
func objectValue(t *testing.T, typ tftypes.Type, values map[string]tftypes.Value) tftypes.Value {
	t.Helper()

	obj, ok := typ.(tftypes.Object)
	require.True(t, ok, "expected an object type, got %T", typ)

	attrs := make(map[string]tftypes.Value, len(obj.AttributeTypes))
	for name, attrType := range obj.AttributeTypes {
		if v, ok := values[name]; ok {
			attrs[name] = v
			continue
		}
		attrs[name] = tftypes.NewValue(attrType, nil)
	}
	for name := range values {
		_, ok := obj.AttributeTypes[name]
		require.True(t, ok, "unknown attribute %q", name)
	}
	return tftypes.NewValue(obj, attrs)
}

func str(v string) tftypes.Value {
	return tftypes.NewValue(tftypes.String, v)
}

func unknownStr() tftypes.Value {
	return tftypes.NewValue(tftypes.String, tftypes.UnknownValue)
}

func strSet(values ...string) tftypes.Value {
	elems := make([]tftypes.Value, 0, len(values))
	for _, v := range values {
		elems = append(elems, str(v))
	}
	return tftypes.NewValue(tftypes.Set{ElementType: tftypes.String}, elems)
}

// resourceHarness drives a resource without the Terraform CLI.
type resourceHarness struct {
	t        *testing.T
	ctx      context.Context
	resource resource.Resource
	schema   resource.SchemaResponse
	objType  tftypes.Type
}

func newResourceHarness(t *testing.T, r resource.Resource, pd *ProviderData) *resourceHarness {
	t.Helper()
	ctx := context.Background()

	h := &resourceHarness{t: t, ctx: ctx, resource: r}
	r.Schema(ctx, resource.SchemaRequest{}, &h.schema)
	require.False(t, h.schema.Diagnostics.HasError(), "schema: %v", h.schema.Diagnostics)
	h.objType = h.schema.Schema.Type().TerraformType(ctx)

	if c, ok := r.(resource.ResourceWithConfigure); ok {
		var resp resource.ConfigureResponse
		c.Configure(ctx, resource.ConfigureRequest{ProviderData: pd}, &resp)
		require.False(t, resp.Diagnostics.HasError(), "configure: %v", resp.Diagnostics)
	}
	return h
}

func (h *resourceHarness) value(values map[string]tftypes.Value) tftypes.Value {
	return objectValue(h.t, h.objType, values)
}

func (h *resourceHarness) nullState() tfsdk.State {
	return tfsdk.State{Schema: h.schema.Schema, Raw: tftypes.NewValue(h.objType, nil)}
}

func (h *resourceHarness) create(plan tftypes.Value) *resource.CreateResponse {
	resp := &resource.CreateResponse{State: h.nullState()}
	h.resource.Create(h.ctx, resource.CreateRequest{
		Plan: tfsdk.Plan{Schema: h.schema.Schema, Raw: plan},
	}, resp)
	return resp
}

func (h *resourceHarness) read(state tfsdk.State) *resource.ReadResponse {
	resp := &resource.ReadResponse{State: state}
	h.resource.Read(h.ctx, resource.ReadRequest{State: state}, resp)
	return resp
}

func (h *resourceHarness) update(state tfsdk.State, plan tftypes.Value) *resource.UpdateResponse {
	resp := &resource.UpdateResponse{State: state}
	h.resource.Update(h.ctx, resource.UpdateRequest{
		State: state,
		Plan:  tfsdk.Plan{Schema: h.schema.Schema, Raw: plan},
	}, resp)
	return resp
}

func (h *resourceHarness) delete(state tfsdk.State) *resource.DeleteResponse {
	resp := &resource.DeleteResponse{State: state}
	h.resource.Delete(h.ctx, resource.DeleteRequest{State: state}, resp)
	return resp
}

func (h *resourceHarness) importState(id string) *resource.ImportStateResponse {
	resp := &resource.ImportStateResponse{State: h.nullState()}
	h.resource.(resource.ResourceWithImportState).ImportState(h.ctx, resource.ImportStateRequest{ID: id}, resp)
	return resp
}

// dataSourceHarness drives a data source without the Terraform CLI.
type dataSourceHarness struct {
	t          *testing.T
	ctx        context.Context
	dataSource datasource.DataSource
	schema     datasource.SchemaResponse
	objType    tftypes.Type
}

func newDataSourceHarness(t *testing.T, d datasource.DataSource, pd *ProviderData) *dataSourceHarness {
	t.Helper()
	ctx := context.Background()

	h := &dataSourceHarness{t: t, ctx: ctx, dataSource: d}
	d.Schema(ctx, datasource.SchemaRequest{}, &h.schema)
	require.False(t, h.schema.Diagnostics.HasError(), "schema: %v", h.schema.Diagnostics)
	h.objType = h.schema.Schema.Type().TerraformType(ctx)

	if c, ok := d.(datasource.DataSourceWithConfigure); ok {
		var resp datasource.ConfigureResponse
		c.Configure(ctx, datasource.ConfigureRequest{ProviderData: pd}, &resp)
		require.False(t, resp.Diagnostics.HasError(), "configure: %v", resp.Diagnostics)
	}
	return h
}

func (h *dataSourceHarness) read(values map[string]tftypes.Value) *datasource.ReadResponse {
	config := objectValue(h.t, h.objType, values)
	resp := &datasource.ReadResponse{
		State: tfsdk.State{Schema: h.schema.Schema, Raw: tftypes.NewValue(h.objType, nil)},
	}
	h.dataSource.Read(h.ctx, datasource.ReadRequest{
		Config: tfsdk.Config{Schema: h.schema.Schema, Raw: config},
	}, resp)
	return resp
}
