// Package commands implements the dirctl command line.
package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	ldapclient "github.com/isometry/terraform-provider-directory/internal/ldap"
)

// Option customizes the root command.
type Option func(*app)

// WithDialer replaces the network dialer, mainly for tests.
func WithDialer(dial ldapclient.DialFunc) Option {
	return func(a *app) {
		a.dial = dial
	}
}

// app holds the state shared by the subcommands of one invocation.
type app struct {
	v        *viper.Viper
	dial     ldapclient.DialFunc
	log      zerolog.Logger
	registry *prometheus.Registry
	metrics  *ldapclient.Metrics
	printer  *printer
}

// Execute runs dirctl with the process arguments.
func Execute(version string) error {
	cmd := NewRootCmd()
	cmd.Version = version
	return cmd.Execute()
}

// NewRootCmd builds a fresh command tree. Each call gets its own viper
// instance and metrics registry.
func NewRootCmd(opts ...Option) *cobra.Command {
	a := &app{
		v:        viper.New(),
		log:      zerolog.Nop(),
		registry: prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.metrics = ldapclient.NewMetrics(a.registry)

	cmd := &cobra.Command{
		Use:   "dirctl",
		Short: "Inspect and bootstrap the managed directory",
		Long: `dirctl talks to the LDAP directory managed by the directory provider.

Use it to create the people and groups containers of a fresh directory,
check connectivity and credentials, and look up users and groups.

Settings come from flags, DIRCTL_* environment variables and a config file,
in that order of precedence.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if !a.v.GetBool("metrics") {
				return nil
			}
			return writeMetrics(cmd.ErrOrStderr(), a.registry)
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "Path to config file (default: $HOME/.dirctl.yaml)")
	flags.String("log-level", "warn", "Log level (trace|debug|info|warn|error)")
	flags.StringP("output", "o", "table", "Output format (table|json|yaml)")
	flags.Bool("metrics", false, "Print collected metrics to stderr on exit")
	flags.String("url", "", "Directory server URL (e.g. ldaps://ldap.example.com)")
	flags.String("base-dn", "", "Root DN of the managed subtree")
	flags.String("people-rdn", "", "RDN of the people container (default ou=People)")
	flags.String("groups-rdn", "", "RDN of the groups container (default ou=groups)")
	flags.String("username", "", "Bind DN")
	flags.String("password", "", "Bind password")
	flags.Bool("use-tls", true, "Upgrade ldap:// connections with StartTLS")
	flags.Bool("skip-tls-verify", false, "Skip TLS certificate verification")
	flags.Duration("timeout", 30*time.Second, "Connection and request timeout")
	flags.Int("max-retries", 3, "Session open retry attempts")

	for _, f := range []string{
		"config", "log-level", "output", "metrics", "url", "base-dn", "people-rdn", "groups-rdn",
		"username", "password", "use-tls", "skip-tls-verify", "timeout", "max-retries",
	} {
		// Keys use underscores so they match the config file and environment.
		_ = a.v.BindPFlag(flagKey(f), flags.Lookup(f))
	}

	cmd.AddCommand(
		newInstallCmd(a),
		newCheckCmd(a),
		newUserCmd(a),
		newGroupCmd(a),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	if err := loadConfigFile(a.v); err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(a.v.GetString("log_level"))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	a.log = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Str("command", cmd.Name()).
		Logger()

	p, err := newPrinter(cmd.OutOrStdout(), a.v.GetString("output"))
	if err != nil {
		return err
	}
	a.printer = p
	return nil
}

// withSession opens a session for the duration of fn. The session manager
// lives only as long as the call.
func (a *app) withSession(ctx context.Context, fn func(dir *ldapclient.Directory, s *ldapclient.Session) error) error {
	config, err := connectionConfig(a.v)
	if err != nil {
		return err
	}

	logger := ldapclient.NewZerologLogger(a.log)
	opts := []ldapclient.SessionOption{
		ldapclient.WithLogger(logger),
		ldapclient.WithMetrics(a.metrics),
	}
	if a.dial != nil {
		opts = append(opts, ldapclient.WithDialer(a.dial))
	}

	sessions, err := ldapclient.NewSessionManager(config, opts...)
	if err != nil {
		return err
	}
	defer sessions.Close()

	s, err := sessions.Open(ctx)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer sessions.Release(s)

	a.log.Debug().Str("principal", s.Principal()).Str("server", s.Server().Address()).Msg("Session opened")

	return fn(ldapclient.NewDirectory(sessions.Layout(), logger, a.metrics), s)
}
