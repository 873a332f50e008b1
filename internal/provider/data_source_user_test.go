package provider

import (
	"context"
	"fmt"
	"testing"

	"github.com/hashicorp/terraform-plugin-framework/datasource"
	"github.com/hashicorp/terraform-plugin-go/tftypes"
	"github.com/hashicorp/terraform-plugin-testing/helper/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserDataSource_Read(t *testing.T) {
	srv := newTestServer(testUserEntry("jdoe1"))
	h := newDataSourceHarness(t, NewUserDataSource(), newTestProviderData(t, srv))

	tests := []struct {
		name   string
		config map[string]tftypes.Value
	}{
		{name: "by uid", config: map[string]tftypes.Value{"uid": str("jdoe1")}},
		{name: "by dn", config: map[string]tftypes.Value{"dn": str(testUserDN("jdoe1"))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := h.read(tt.config)
			require.False(t, resp.Diagnostics.HasError(), "%v", resp.Diagnostics)

			var model UserDataSourceModel
			require.False(t, resp.State.Get(t.Context(), &model).HasError())
			assert.Equal(t, "jdoe1", model.UID.ValueString())
			assert.Equal(t, testUserDN("jdoe1"), model.ID.ValueString())
			assert.Equal(t, testUserDN("jdoe1"), model.DistinguishedName.ValueString())
			assert.Equal(t, "Jdoe1", model.CN.ValueString())
			assert.Equal(t, "Tester", model.SN.ValueString())
			assert.Equal(t, "Jdoe1 Tester", model.Name.ValueString())
			assert.Equal(t, "jdoe1@example.com", model.Mail.ValueString())
			assert.True(t, model.Description.IsNull())
			assert.True(t, model.SID.IsNull())
		})
	}
}

func TestUserDataSource_NotFound(t *testing.T) {
	h := newDataSourceHarness(t, NewUserDataSource(), newTestProviderData(t, newTestServer()))

	resp := h.read(map[string]tftypes.Value{"uid": str("ghost1")})

	require.True(t, resp.Diagnostics.HasError())
	assert.Equal(t, "User Not Found", resp.Diagnostics.Errors()[0].Summary())
}

func TestUserDataSource_ConfigValidators(t *testing.T) {
	d := &UserDataSource{}
	validators := d.ConfigValidators(context.Background())
	require.Len(t, validators, 1)

	var resp datasource.MetadataResponse
	d.Metadata(context.Background(), datasource.MetadataRequest{ProviderTypeName: "directory"}, &resp)
	assert.Equal(t, "directory_user", resp.TypeName)
}

func TestAccUserDataSource_basic(t *testing.T) {
	fixture := newTestFixture(t)
	uid := generateTestUID()
	dn := fixture.CreateUser(uid)

	resource.Test(t, resource.TestCase{
		PreCheck:                 func() { testAccPreCheck(t) },
		ProtoV6ProviderFactories: testAccProtoV6ProviderFactories,
		Steps: []resource.TestStep{
			{
				Config: testAccProviderConfig() + fmt.Sprintf(`
data "directory_user" "test" {
  uid = %q
}
`, uid),
				Check: resource.ComposeAggregateTestCheckFunc(
					resource.TestCheckResourceAttr("data.directory_user.test", "id", dn),
					resource.TestCheckResourceAttr("data.directory_user.test", "uid", uid),
					resource.TestCheckResourceAttrSet("data.directory_user.test", "mail"),
				),
			},
		},
	})
}
