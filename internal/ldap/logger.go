package ldap

import (
	"context"
	"errors"
	"maps"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/hashicorp/terraform-plugin-log/tflog"
	"github.com/rs/zerolog"
)

// Logger interface for directory operations.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
	Trace(msg string, fields map[string]any)
}

// TFLogger wraps tflog for use inside a Terraform provider.
type TFLogger struct {
	ctx       context.Context
	subsystem string
}

// NewTFLogger creates a logger bound to a tflog subsystem. The subsystem must
// already exist on ctx, see tflog.NewSubsystem.
func NewTFLogger(ctx context.Context, subsystem string) *TFLogger {
	return &TFLogger{
		ctx:       ctx,
		subsystem: subsystem,
	}
}

func (l *TFLogger) Debug(msg string, fields map[string]any) {
	tflog.SubsystemDebug(l.ctx, l.subsystem, msg, SanitizeFields(fields))
}

func (l *TFLogger) Info(msg string, fields map[string]any) {
	tflog.SubsystemInfo(l.ctx, l.subsystem, msg, SanitizeFields(fields))
}

func (l *TFLogger) Warn(msg string, fields map[string]any) {
	tflog.SubsystemWarn(l.ctx, l.subsystem, msg, SanitizeFields(fields))
}

func (l *TFLogger) Error(msg string, fields map[string]any) {
	tflog.SubsystemError(l.ctx, l.subsystem, msg, SanitizeFields(fields))
}

func (l *TFLogger) Trace(msg string, fields map[string]any) {
	tflog.SubsystemTrace(l.ctx, l.subsystem, msg, SanitizeFields(fields))
}

// ZerologLogger adapts a zerolog.Logger for command-line use.
type ZerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger wraps logger.
func NewZerologLogger(logger zerolog.Logger) *ZerologLogger {
	return &ZerologLogger{logger: logger}
}

func (l *ZerologLogger) Debug(msg string, fields map[string]any) {
	l.logger.Debug().Fields(SanitizeFields(fields)).Msg(msg)
}

func (l *ZerologLogger) Info(msg string, fields map[string]any) {
	l.logger.Info().Fields(SanitizeFields(fields)).Msg(msg)
}

func (l *ZerologLogger) Warn(msg string, fields map[string]any) {
	l.logger.Warn().Fields(SanitizeFields(fields)).Msg(msg)
}

func (l *ZerologLogger) Error(msg string, fields map[string]any) {
	l.logger.Error().Fields(SanitizeFields(fields)).Msg(msg)
}

func (l *ZerologLogger) Trace(msg string, fields map[string]any) {
	l.logger.Trace().Fields(SanitizeFields(fields)).Msg(msg)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, map[string]any) {}
func (NopLogger) Info(string, map[string]any)  {}
func (NopLogger) Warn(string, map[string]any)  {}
func (NopLogger) Error(string, map[string]any) {}
func (NopLogger) Trace(string, map[string]any) {}

// LogOperation runs fn, logging its start, duration and outcome.
func LogOperation(logger Logger, operation string, fields map[string]any, fn func() error) error {
	start := time.Now()

	f := make(map[string]any, len(fields)+3)
	maps.Copy(f, fields)
	f["operation"] = operation

	logger.Debug("Starting operation", f)

	err := fn()

	f["duration_ms"] = time.Since(start).Milliseconds()
	if err != nil {
		f["error"] = err.Error()
		logger.Error("Operation failed", f)
	} else {
		logger.Debug("Operation completed successfully", f)
	}

	return err
}

// LogLDAPError logs LDAP-specific error information.
func LogLDAPError(logger Logger, operation string, err error, fields map[string]any) {
	f := make(map[string]any, len(fields)+5)
	maps.Copy(f, fields)
	f["operation"] = operation
	f["error"] = err.Error()

	var resultErr *ldap.Error
	if errors.As(err, &resultErr) {
		f["ldap_result_code"] = resultErr.ResultCode
		if resultErr.MatchedDN != "" {
			f["ldap_matched_dn"] = resultErr.MatchedDN
		}
		if resultErr.Err != nil {
			f["ldap_diagnostic_message"] = resultErr.Err.Error()
		}
	}

	logger.Error("LDAP operation failed", f)
}

var sensitiveKeys = map[string]bool{
	"password":     true,
	"passwd":       true,
	"userpassword": true,
	"secret":       true,
	"token":        true,
	"credential":   true,
	"credentials":  true,
	"confirmation": true,
}

// SanitizeFields removes sensitive information from log fields.
func SanitizeFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return fields
	}

	sanitized := make(map[string]any, len(fields))
	for k, v := range fields {
		if sensitiveKeys[strings.ToLower(k)] {
			sanitized[k] = "[REDACTED]"
			continue
		}
		if str, ok := v.(string); ok && containsSensitivePattern(str) {
			sanitized[k] = "[REDACTED]"
			continue
		}
		sanitized[k] = v
	}

	return sanitized
}

func containsSensitivePattern(s string) bool {
	lower := strings.ToLower(s)
	for _, pattern := range []string{"password=", "userpassword=", "secret=", "token="} {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
