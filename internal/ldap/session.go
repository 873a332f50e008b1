package ldap

import (
	"context"
	"fmt"
	"net"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/google/uuid"
)

// Conn is the subset of *ldap.Conn used by sessions and the directory.
type Conn interface {
	Bind(username, password string) error
	ExternalBind() error
	GSSAPIBind(client ldap.GSSAPIClient, servicePrincipal, authzid string) error
	Unbind() error
	Close() error
	IsClosing() bool
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	Add(req *ldap.AddRequest) error
	Modify(req *ldap.ModifyRequest) error
	Del(req *ldap.DelRequest) error
}

var _ Conn = (*ldap.Conn)(nil)

// DialFunc opens an unauthenticated transport connection to server.
type DialFunc func(ctx context.Context, server *ServerInfo, cfg *ConnectionConfig) (Conn, error)

// DialLDAP is the default DialFunc. It dials ldaps:// directly and upgrades
// ldap:// with StartTLS when cfg.UseTLS is set.
func DialLDAP(ctx context.Context, server *ServerInfo, cfg *ConnectionConfig) (Conn, error) {
	tc, err := buildTLSConfig(cfg, server)
	if err != nil {
		return nil, err
	}

	dialer := &net.Dialer{Timeout: cfg.Timeout}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	}

	opts := []ldap.DialOpt{ldap.DialWithDialer(dialer)}
	if server.UseTLS {
		opts = append(opts, ldap.DialWithTLSConfig(tc))
	}

	conn, err := ldap.DialURL(server.URL(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", server.URL(), err)
	}

	if !server.UseTLS && cfg.UseTLS {
		if err := conn.StartTLS(tc); err != nil {
			conn.Close()
			return nil, fmt.Errorf("StartTLS with %s failed: %w", server.Address(), err)
		}
	}

	conn.SetTimeout(cfg.Timeout)
	return conn, nil
}

// Session is an authenticated connection to the directory. A Session is not
// safe for concurrent use.
type Session struct {
	id            string
	conn          Conn
	server        *ServerInfo
	principal     string
	method        AuthMethod
	openedAt      time.Time
	authenticated bool
	released      atomic.Bool
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// Principal returns the identity the session authenticated as.
func (s *Session) Principal() string { return s.principal }

// Server returns the server the session is connected to.
func (s *Session) Server() *ServerInfo { return s.server }

// OpenedAt returns when the session was opened.
func (s *Session) OpenedAt() time.Time { return s.openedAt }

// Closed reports whether the session can no longer be used.
func (s *Session) Closed() bool {
	return s == nil || s.released.Load() || s.conn == nil || s.conn.IsClosing()
}

func (s *Session) connection() (Conn, error) {
	if s.Closed() {
		return nil, ErrSessionClosed
	}
	return s.conn, nil
}

// SessionManager opens, tracks and releases sessions.
type SessionManager struct {
	// openMu serializes session establishment; mu guards sessions only, so
	// Release and Sessions never wait behind a retrying Open.
	openMu   sync.Mutex
	mu       sync.Mutex
	config   *ConnectionConfig
	server   *ServerInfo
	layout   *Layout
	dial     DialFunc
	logger   Logger
	metrics  *Metrics
	sessions []*Session
}

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// WithDialer replaces the transport dialer.
func WithDialer(dial DialFunc) SessionOption {
	return func(m *SessionManager) { m.dial = dial }
}

// WithLogger sets the logger.
func WithLogger(logger Logger) SessionOption {
	return func(m *SessionManager) { m.logger = logger }
}

// WithMetrics sets the metrics collectors.
func WithMetrics(metrics *Metrics) SessionOption {
	return func(m *SessionManager) { m.metrics = metrics }
}

// NewSessionManager validates config and prepares a manager. No connection
// is made until Open.
func NewSessionManager(config *ConnectionConfig, opts ...SessionOption) (*SessionManager, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	server, err := ParseServerURL(config.URL)
	if err != nil {
		return nil, err
	}

	layout, err := config.Layout()
	if err != nil {
		return nil, fmt.Errorf("invalid layout: %w", err)
	}

	m := &SessionManager{
		config: config,
		server: server,
		layout: layout,
		dial:   DialLDAP,
		logger: NopLogger{},
	}
	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Layout returns the root context every path is built against.
func (m *SessionManager) Layout() *Layout {
	return m.layout
}

// Server returns the configured server.
func (m *SessionManager) Server() *ServerInfo {
	return m.server
}

// Open dials and authenticates with the configured credentials.
func (m *SessionManager) Open(ctx context.Context) (*Session, error) {
	method := m.config.GetAuthMethod()
	principal := m.config.Username
	return m.open(ctx, principal, method, func(conn Conn) error {
		return m.authenticate(ctx, conn)
	})
}

// OpenAs dials and performs a simple bind as principal. The configured
// credentials are not used.
func (m *SessionManager) OpenAs(ctx context.Context, principal *Path, credential string) (*Session, error) {
	if principal == nil {
		return nil, fmt.Errorf("principal is required")
	}
	return m.open(ctx, principal.String(), AuthMethodSimpleBind, func(conn Conn) error {
		return conn.Bind(principal.String(), credential)
	})
}

// open serializes session establishment. Retryable failures are retried
// with exponential backoff.
func (m *SessionManager) open(ctx context.Context, principal string, method AuthMethod, auth func(Conn) error) (*Session, error) {
	m.openMu.Lock()
	defer m.openMu.Unlock()

	fields := map[string]any{
		"server":      m.server.Address(),
		"principal":   principal,
		"auth_method": method.String(),
	}
	m.logger.Debug("Opening directory session", fields)

	start := time.Now()
	backoff := m.config.InitialBackoff
	var lastErr error

	for attempt := 0; attempt <= m.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				m.metrics.sessionOpened(ctx.Err())
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(time.Duration(float64(backoff)*m.config.BackoffFactor), m.config.MaxBackoff)
		}

		session, err := m.openOnce(ctx, principal, method, auth)
		if err == nil {
			m.mu.Lock()
			m.sessions = append(m.sessions, session)
			m.mu.Unlock()
			m.metrics.sessionOpened(nil)
			fields["session_id"] = session.id
			fields["duration_ms"] = time.Since(start).Milliseconds()
			m.logger.Info("Directory session opened", fields)
			return session, nil
		}

		lastErr = err
		if !IsRetryableError(err) {
			break
		}
		m.logger.Warn("Session attempt failed, retrying", map[string]any{
			"attempt": attempt + 1,
			"error":   err.Error(),
		})
	}

	LogLDAPError(m.logger, "open_session", lastErr, fields)
	m.metrics.sessionOpened(lastErr)
	return nil, lastErr
}

func (m *SessionManager) openOnce(ctx context.Context, principal string, method AuthMethod, auth func(Conn) error) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn, err := m.dial(ctx, m.server, m.config)
	if err != nil {
		return nil, WrapError("connect", err)
	}

	if err := auth(conn); err != nil {
		_ = conn.Close()
		return nil, WrapError("bind", err)
	}

	return &Session{
		id:            uuid.NewString(),
		conn:          conn,
		server:        m.server,
		principal:     principal,
		method:        method,
		openedAt:      time.Now(),
		authenticated: true,
	}, nil
}

// Release unbinds and closes s and stops tracking it. Nil, released and
// already closed sessions are tolerated. Failures are logged, not returned.
func (m *SessionManager) Release(s *Session) {
	if s == nil || !s.released.CompareAndSwap(false, true) {
		return
	}

	fields := map[string]any{"session_id": s.id}

	if s.conn != nil {
		if s.authenticated && !s.conn.IsClosing() {
			if err := s.conn.Unbind(); err != nil {
				fields["error"] = err.Error()
				m.logger.Warn("Unbind failed", fields)
			}
		}
		if !s.conn.IsClosing() {
			if err := s.conn.Close(); err != nil {
				fields["error"] = err.Error()
				m.logger.Warn("Close failed", fields)
			}
		}
	}

	m.mu.Lock()
	idx := slices.Index(m.sessions, s)
	if idx >= 0 {
		m.sessions = slices.Delete(m.sessions, idx, idx+1)
	}
	m.mu.Unlock()

	if idx >= 0 {
		m.metrics.sessionReleased()
	}
	m.logger.Debug("Directory session released", fields)
}

// Sessions returns a snapshot of the tracked sessions.
func (m *SessionManager) Sessions() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.sessions)
}

// Close releases every tracked session.
func (m *SessionManager) Close() {
	for _, s := range m.Sessions() {
		m.Release(s)
	}
}
