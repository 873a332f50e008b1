package ldap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServerURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    *ServerInfo
		wantErr bool
	}{
		{name: "ldap default port", url: "ldap://ldap.example.com", want: &ServerInfo{Host: "ldap.example.com", Port: 389}},
		{name: "ldaps default port", url: "ldaps://ldap.example.com", want: &ServerInfo{Host: "ldap.example.com", Port: 636, UseTLS: true}},
		{name: "explicit port", url: "LDAP://ldap.example.com:3389", want: &ServerInfo{Host: "ldap.example.com", Port: 3389}},
		{name: "ipv6", url: "ldaps://[::1]:1636", want: &ServerInfo{Host: "::1", Port: 1636, UseTLS: true}},
		{name: "empty", url: "", wantErr: true},
		{name: "bad scheme", url: "https://ldap.example.com", wantErr: true},
		{name: "no host", url: "ldap://", wantErr: true},
		{name: "bad port", url: "ldap://ldap.example.com:99999", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseServerURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestServerInfo_Address(t *testing.T) {
	s := &ServerInfo{Host: "::1", Port: 636, UseTLS: true}
	assert.Equal(t, "[::1]:636", s.Address())
	assert.Equal(t, "ldaps://[::1]:636", s.URL())
}

func TestBuildTLSConfig(t *testing.T) {
	server := &ServerInfo{Host: "ldap.example.com", Port: 636, UseTLS: true}

	tc, err := buildTLSConfig(&ConnectionConfig{SkipTLSVerify: true}, server)
	require.NoError(t, err)
	assert.Equal(t, "ldap.example.com", tc.ServerName)
	assert.True(t, tc.InsecureSkipVerify)

	_, err = buildTLSConfig(&ConnectionConfig{TLSCACert: "not a certificate"}, server)
	assert.Error(t, err)

	_, err = buildTLSConfig(&ConnectionConfig{TLSClientCertFile: "/path/to/cert.pem"}, server)
	assert.ErrorContains(t, err, "client key file is required")
}
