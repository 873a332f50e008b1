package ldap

import (
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-ldap/ldap/v3"
	"github.com/go-playground/validator/v10"
)

// ConnectionConfig holds configuration for directory sessions.
type ConnectionConfig struct {
	// Connection settings
	URL     string        `mapstructure:"url" validate:"required"`
	BaseDN  string        `mapstructure:"base_dn" validate:"required"`
	Timeout time.Duration `mapstructure:"timeout" default:"30s" validate:"gt=0"`

	// Layout of the managed subtree, relative to BaseDN
	PeopleRDN string `mapstructure:"people_rdn" default:"ou=People" validate:"required"`
	GroupsRDN string `mapstructure:"groups_rdn" default:"ou=groups" validate:"required"`

	// Authentication settings
	AuthMethodName string `mapstructure:"auth_method" validate:"omitempty,oneof=simple kerberos external"` // Empty selects by credentials
	Username       string `mapstructure:"username"`                                                        // Principal DN for simple bind, principal name for Kerberos
	Password       string `mapstructure:"password"`
	KerberosRealm  string `mapstructure:"kerberos_realm"`
	KerberosKeytab string `mapstructure:"kerberos_keytab"`
	KerberosConfig string `mapstructure:"kerberos_config"`
	KerberosCCache string `mapstructure:"kerberos_ccache"`
	KerberosSPN    string `mapstructure:"kerberos_spn"`

	// TLS settings
	TLSConfig         *tls.Config `mapstructure:"-" default:"-" validate:"-"`
	UseTLS            bool        `mapstructure:"use_tls" default:"true"`
	SkipTLSVerify     bool        `mapstructure:"skip_tls_verify"`
	TLSCACertFile     string      `mapstructure:"tls_ca_cert_file"`
	TLSCACert         string      `mapstructure:"tls_ca_cert"`
	TLSClientCertFile string      `mapstructure:"tls_client_cert_file"`
	TLSClientKeyFile  string      `mapstructure:"tls_client_key_file"`

	// Retry settings
	MaxRetries     int           `mapstructure:"max_retries" default:"3" validate:"gte=0,lte=10"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff" default:"500ms" validate:"gt=0"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff" default:"30s" validate:"gtefield=InitialBackoff"`
	BackoffFactor  float64       `mapstructure:"backoff_factor" default:"2.0" validate:"gte=1"`
}

// DefaultConfig returns a configuration populated from the struct defaults.
func DefaultConfig() *ConnectionConfig {
	config := &ConnectionConfig{}
	// Only fails on malformed tags.
	if err := defaults.Set(config); err != nil {
		panic(fmt.Sprintf("invalid connection config defaults: %v", err))
	}
	return config
}

var configValidator = validator.New()

// Validate checks the configuration for missing or out-of-range settings.
func (c *ConnectionConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := ParseServerURL(c.URL); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := ParsePath(c.BaseDN); err != nil {
		return fmt.Errorf("invalid configuration: base DN: %w", err)
	}
	return nil
}

// HasAuthentication reports whether any credentials are configured.
func (c *ConnectionConfig) HasAuthentication() bool {
	return c.Username != "" || c.KerberosRealm != "" || c.TLSClientCertFile != ""
}

// GetAuthMethod determines the authentication method from the configuration.
// An explicit AuthMethodName wins over the credentials present.
func (c *ConnectionConfig) GetAuthMethod() AuthMethod {
	switch strings.ToLower(c.AuthMethodName) {
	case "simple":
		return AuthMethodSimpleBind
	case "kerberos":
		return AuthMethodKerberos
	case "external":
		return AuthMethodExternal
	}

	switch {
	case c.KerberosRealm != "":
		return AuthMethodKerberos
	case c.Username == "" && c.TLSClientCertFile != "":
		return AuthMethodExternal
	default:
		return AuthMethodSimpleBind
	}
}

// Layout returns the directory layout described by the configuration.
func (c *ConnectionConfig) Layout() (*Layout, error) {
	return NewLayout(c.BaseDN, c.PeopleRDN, c.GroupsRDN)
}

// AuthMethod defines authentication method types.
type AuthMethod int

const (
	AuthMethodSimpleBind AuthMethod = iota // DN and password
	AuthMethodKerberos                     // GSSAPI
	AuthMethodExternal                     // SASL EXTERNAL over a client certificate
)

// String returns string representation of authentication method.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodSimpleBind:
		return "simple"
	case AuthMethodKerberos:
		return "kerberos"
	case AuthMethodExternal:
		return "external"
	default:
		return "unknown"
	}
}

// SearchScope defines LDAP search scope.
type SearchScope int

const (
	ScopeBaseObject SearchScope = iota
	ScopeSingleLevel
	ScopeWholeSubtree
)

func (s SearchScope) String() string {
	switch s {
	case ScopeBaseObject:
		return "base"
	case ScopeSingleLevel:
		return "one"
	case ScopeWholeSubtree:
		return "sub"
	default:
		return "unknown"
	}
}

func (s SearchScope) toLDAP() int {
	switch s {
	case ScopeSingleLevel:
		return ldap.ScopeSingleLevel
	case ScopeWholeSubtree:
		return ldap.ScopeWholeSubtree
	default:
		return ldap.ScopeBaseObject
	}
}

// SearchRequest encapsulates search parameters.
type SearchRequest struct {
	Base       *Path
	Scope      SearchScope
	Filter     string
	Attributes []string
	SizeLimit  int
}

func (r *SearchRequest) toLDAP() *ldap.SearchRequest {
	filter := r.Filter
	if filter == "" {
		filter = "(objectClass=*)"
	}
	return ldap.NewSearchRequest(
		r.Base.String(),
		r.Scope.toLDAP(),
		ldap.NeverDerefAliases,
		r.SizeLimit,
		0,
		false,
		filter,
		r.Attributes,
		nil,
	)
}
