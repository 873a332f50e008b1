package ldap

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// ServerInfo contains the address of an LDAP server.
type ServerInfo struct {
	Host   string
	Port   int
	UseTLS bool // ldaps://
}

// Address returns host:port.
func (s *ServerInfo) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// URL returns the ldap:// or ldaps:// form.
func (s *ServerInfo) URL() string {
	scheme := "ldap"
	if s.UseTLS {
		scheme = "ldaps"
	}
	return scheme + "://" + s.Address()
}

// ParseServerURL parses an ldap:// or ldaps:// URL, filling in the default
// port for the scheme.
func ParseServerURL(raw string) (*ServerInfo, error) {
	if raw == "" {
		return nil, fmt.Errorf("URL cannot be empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid LDAP URL %q: %w", raw, err)
	}

	server := &ServerInfo{Host: u.Hostname()}
	switch strings.ToLower(u.Scheme) {
	case "ldap":
		server.Port = 389
	case "ldaps":
		server.Port = 636
		server.UseTLS = true
	default:
		return nil, fmt.Errorf("unsupported scheme %q, must be ldap:// or ldaps://", u.Scheme)
	}

	if server.Host == "" {
		return nil, fmt.Errorf("no hostname found in URL: %s", raw)
	}

	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid port number: %s", p)
		}
		server.Port = port
	}

	return server, nil
}
