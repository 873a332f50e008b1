package ldap

import (
	"context"
	"fmt"
	"time"
)

// authenticate performs authentication based on the configured method.
func (m *SessionManager) authenticate(ctx context.Context, conn Conn) error {
	method := m.config.GetAuthMethod()

	fields := map[string]any{
		"auth_method": method.String(),
		"username":    m.config.Username,
	}
	m.logger.Debug("Performing authentication", fields)

	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	var err error

	switch method {
	case AuthMethodSimpleBind:
		err = m.authenticateSimple(conn)
	case AuthMethodKerberos:
		err = m.authenticateKerberos(conn)
	case AuthMethodExternal:
		err = conn.ExternalBind()
	default:
		err = fmt.Errorf("unsupported authentication method: %s", method)
	}

	fields["duration_ms"] = time.Since(start).Milliseconds()
	if err != nil {
		LogLDAPError(m.logger, "authenticate", err, fields)
		return err
	}

	m.logger.Debug("Authentication successful", fields)
	return nil
}

func (m *SessionManager) authenticateSimple(conn Conn) error {
	if m.config.Username == "" {
		return fmt.Errorf("username is required for simple bind authentication")
	}
	return conn.Bind(m.config.Username, m.config.Password)
}

func (m *SessionManager) authenticateKerberos(conn Conn) error {
	client, err := newGSSAPIClient(m.config)
	if err != nil {
		return fmt.Errorf("failed to create GSSAPI client: %w", err)
	}

	spn, err := servicePrincipal(m.config, m.server)
	if err != nil {
		return fmt.Errorf("failed to build service principal: %w", err)
	}

	if err := conn.GSSAPIBind(client, spn, ""); err != nil {
		return fmt.Errorf("GSSAPI bind failed: %w", err)
	}
	return nil
}
