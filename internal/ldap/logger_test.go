package ldap

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// recordingLogger keeps every entry for assertions.
type recordingLogger struct {
	entries []logEntry
}

type logEntry struct {
	level  string
	msg    string
	fields map[string]any
}

func (l *recordingLogger) log(level, msg string, fields map[string]any) {
	l.entries = append(l.entries, logEntry{level: level, msg: msg, fields: fields})
}

func (l *recordingLogger) Debug(msg string, fields map[string]any) { l.log("debug", msg, fields) }
func (l *recordingLogger) Info(msg string, fields map[string]any)  { l.log("info", msg, fields) }
func (l *recordingLogger) Warn(msg string, fields map[string]any)  { l.log("warn", msg, fields) }
func (l *recordingLogger) Error(msg string, fields map[string]any) { l.log("error", msg, fields) }
func (l *recordingLogger) Trace(msg string, fields map[string]any) { l.log("trace", msg, fields) }

func TestSanitizeFields(t *testing.T) {
	fields := map[string]any{
		"dn":           "uid=jdoe,ou=People,dc=example,dc=com",
		"Password":     "hunter22",
		"userPassword": "hunter22",
		"filter":       "(userPassword=hunter22)",
		"attempt":      2,
	}

	got := SanitizeFields(fields)

	assert.Equal(t, "uid=jdoe,ou=People,dc=example,dc=com", got["dn"])
	assert.Equal(t, "[REDACTED]", got["Password"])
	assert.Equal(t, "[REDACTED]", got["userPassword"])
	assert.Equal(t, "[REDACTED]", got["filter"])
	assert.Equal(t, 2, got["attempt"])
	assert.Equal(t, "hunter22", fields["Password"], "input must not be modified")

	assert.Nil(t, SanitizeFields(nil))
}

func TestLogOperation(t *testing.T) {
	logger := &recordingLogger{}

	err := LogOperation(logger, "insert", map[string]any{"dn": "cn=a"}, func() error { return nil })
	require.NoError(t, err)
	require.Len(t, logger.entries, 2)
	assert.Equal(t, "Operation completed successfully", logger.entries[1].msg)
	assert.Equal(t, "insert", logger.entries[1].fields["operation"])
	assert.Contains(t, logger.entries[1].fields, "duration_ms")

	boom := errors.New("boom")
	err = LogOperation(logger, "delete", nil, func() error { return boom })
	assert.Same(t, boom, err)
	assert.Equal(t, "error", logger.entries[3].level)
	assert.Equal(t, "boom", logger.entries[3].fields["error"])
}

func TestLogLDAPError(t *testing.T) {
	logger := &recordingLogger{}
	err := &ldap.Error{
		ResultCode: ldap.LDAPResultNoSuchObject,
		MatchedDN:  "dc=example,dc=com",
		Err:        errors.New("no such object"),
	}

	LogLDAPError(logger, "lookup", err, map[string]any{"dn": "uid=x,dc=example,dc=com"})

	require.Len(t, logger.entries, 1)
	fields := logger.entries[0].fields
	assert.Equal(t, uint16(ldap.LDAPResultNoSuchObject), fields["ldap_result_code"])
	assert.Equal(t, "dc=example,dc=com", fields["ldap_matched_dn"])
	assert.Equal(t, "no such object", fields["ldap_diagnostic_message"])
}

func TestZerologLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))

	logger.Info("Directory session opened", map[string]any{"session_id": "s1", "password": "x"})
	logger.Trace("dropped below debug", nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "Directory session opened", entry["message"])
	assert.Equal(t, "s1", entry["session_id"])
	assert.Equal(t, "[REDACTED]", entry["password"])
}

func TestDirectory_LogsAmbiguousLookup(t *testing.T) {
	conn := &MockConn{}
	conn.On("IsClosing").Return(false)
	conn.On("Search", mock.Anything).Return(&ldap.SearchResult{Entries: []*ldap.Entry{userEntry("a1b2"), userEntry("a1b2")}}, nil)

	logger := &recordingLogger{}
	dir := NewDirectory(testLayout(t), logger, nil)
	_, err := dir.Lookup(t.Context(), testSession(conn), MustParsePath(userDN("a1b2")))
	require.Error(t, err)

	var found bool
	for _, e := range logger.entries {
		if e.level == "error" && e.msg == "Ambiguous directory entry" {
			found = true
			assert.Equal(t, 2, e.fields["entries"])
		}
	}
	assert.True(t, found)
}
