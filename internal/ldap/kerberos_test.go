package ldap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKerberosPrincipal(t *testing.T) {
	tests := []struct {
		name      string
		config    *ConnectionConfig
		wantUser  string
		wantRealm string
		wantErr   bool
	}{
		{
			name:      "explicit realm",
			config:    &ConnectionConfig{Username: "svc-directory", KerberosRealm: "EXAMPLE.COM"},
			wantUser:  "svc-directory",
			wantRealm: "EXAMPLE.COM",
		},
		{
			name:      "realm from username",
			config:    &ConnectionConfig{Username: "svc-directory@EXAMPLE.COM"},
			wantUser:  "svc-directory",
			wantRealm: "EXAMPLE.COM",
		},
		{
			name:      "explicit realm wins over username suffix",
			config:    &ConnectionConfig{Username: "svc@OTHER.COM", KerberosRealm: "EXAMPLE.COM"},
			wantUser:  "svc@OTHER.COM",
			wantRealm: "EXAMPLE.COM",
		},
		{
			name:    "no realm",
			config:  &ConnectionConfig{Username: "svc-directory"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, realm, err := kerberosPrincipal(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantUser, user)
			assert.Equal(t, tt.wantRealm, realm)
		})
	}
}

func TestServicePrincipal(t *testing.T) {
	server := &ServerInfo{Host: "ldap.example.com", Port: 389}

	spn, err := servicePrincipal(&ConnectionConfig{}, server)
	require.NoError(t, err)
	assert.Equal(t, "ldap/ldap.example.com", spn)

	spn, err = servicePrincipal(&ConnectionConfig{KerberosSPN: "ldap/custom.example.com"}, server)
	require.NoError(t, err)
	assert.Equal(t, "ldap/custom.example.com", spn)

	_, err = servicePrincipal(&ConnectionConfig{}, &ServerInfo{})
	assert.Error(t, err)
}

func TestDefaultCCachePath(t *testing.T) {
	t.Setenv("KRB5CCNAME", "FILE:/tmp/krb5cc_test")
	assert.Equal(t, "/tmp/krb5cc_test", defaultCCachePath())

	t.Setenv("KRB5CCNAME", "")
	assert.Contains(t, defaultCCachePath(), "/tmp/krb5cc_")
}

func TestDefaultKeytabPath(t *testing.T) {
	t.Setenv("KRB5_KTNAME", "FILE:/etc/custom.keytab")
	assert.Equal(t, "/etc/custom.keytab", defaultKeytabPath())

	t.Setenv("KRB5_KTNAME", "")
	assert.Equal(t, "/etc/krb5.keytab", defaultKeytabPath())
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "krb5.conf")
	require.NoError(t, os.WriteFile(file, []byte("[libdefaults]\n"), 0o600))

	assert.True(t, fileExists(file))
	assert.False(t, fileExists(dir), "directories are not files")
	assert.False(t, fileExists(filepath.Join(dir, "missing")))
	assert.False(t, fileExists(""))

	assert.Equal(t, file, firstExisting("", filepath.Join(dir, "missing"), file))
	assert.Empty(t, firstExisting(filepath.Join(dir, "missing")))
}

func TestNewGSSAPIClient_RequiresRealm(t *testing.T) {
	conf := filepath.Join(t.TempDir(), "krb5.conf")
	require.NoError(t, os.WriteFile(conf, []byte("[libdefaults]\n"), 0o600))

	_, err := newGSSAPIClient(&ConnectionConfig{Username: "svc", KerberosConfig: conf})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kerberos realm is required")
}

func TestNewGSSAPIClient_MissingConfig(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "krb5.conf")

	for name, config := range map[string]*ConnectionConfig{
		"password": {Username: "svc", Password: "secret", KerberosRealm: "EXAMPLE.COM", KerberosConfig: missing},
		"keytab":   {Username: "svc", KerberosRealm: "EXAMPLE.COM", KerberosKeytab: "/nonexistent/krb5.keytab", KerberosConfig: missing},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := newGSSAPIClient(config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "kerberos configuration file not found at "+missing)
		})
	}
}
