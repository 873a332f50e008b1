package ldap

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/go-ldap/ldap/v3/gssapi"
	krb5client "github.com/jcmturner/gokrb5/v8/client"
)

const defaultKrb5Conf = "/etc/krb5.conf"

// kerberosPrincipal splits user@REALM when no realm is configured explicitly.
func kerberosPrincipal(cfg *ConnectionConfig) (user, realm string, err error) {
	user, realm = cfg.Username, cfg.KerberosRealm
	if realm == "" {
		if name, r, ok := strings.Cut(user, "@"); ok {
			user, realm = name, r
		}
	}
	if realm == "" {
		return "", "", fmt.Errorf("kerberos realm is required (set kerberos_realm or include realm in username)")
	}
	return user, realm, nil
}

// newGSSAPIClient creates a GSSAPI client.
// Priority order: credential cache → keytab → password.
func newGSSAPIClient(cfg *ConnectionConfig) (ldap.GSSAPIClient, error) {
	krb5conf := cfg.KerberosConfig
	if krb5conf == "" {
		krb5conf = defaultKrb5Conf
	}
	if !fileExists(krb5conf) {
		return nil, fmt.Errorf("kerberos configuration file not found at %s", krb5conf)
	}

	user, realm, err := kerberosPrincipal(cfg)
	if err != nil {
		return nil, err
	}

	if ccache := firstExisting(cfg.KerberosCCache, defaultCCachePath()); ccache != "" {
		return gssapi.NewClientFromCCache(ccache, krb5conf, krb5client.DisablePAFXFAST(true))
	}

	if user == "" {
		return nil, fmt.Errorf("username (principal) is required for Kerberos authentication")
	}

	if keytab := firstExisting(cfg.KerberosKeytab, defaultKeytabPath()); keytab != "" {
		return gssapi.NewClientWithKeytab(user, realm, keytab, krb5conf, krb5client.DisablePAFXFAST(true))
	}

	if cfg.Password != "" {
		return gssapi.NewClientWithPassword(user, realm, cfg.Password, krb5conf, krb5client.DisablePAFXFAST(true))
	}

	return nil, fmt.Errorf("no suitable credentials found for Kerberos authentication")
}

// servicePrincipal returns ldap/<host> unless overridden.
func servicePrincipal(cfg *ConnectionConfig, server *ServerInfo) (string, error) {
	if cfg.KerberosSPN != "" {
		return cfg.KerberosSPN, nil
	}
	if server == nil || server.Host == "" {
		return "", fmt.Errorf("hostname is required for service principal")
	}
	return "ldap/" + server.Host, nil
}

func defaultCCachePath() string {
	if ccache := os.Getenv("KRB5CCNAME"); ccache != "" {
		return strings.TrimPrefix(ccache, "FILE:")
	}
	return fmt.Sprintf("/tmp/krb5cc_%d", os.Getuid())
}

func defaultKeytabPath() string {
	if keytab := os.Getenv("KRB5_KTNAME"); keytab != "" {
		return strings.TrimPrefix(keytab, "FILE:")
	}
	return "/etc/krb5.keytab"
}

func firstExisting(paths ...string) string {
	for _, p := range paths {
		if fileExists(p) {
			return p
		}
	}
	return ""
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
