package ldap

import (
	"context"
	"strings"
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/isometry/terraform-provider-directory/internal/ldap/ldaptest"
)

const testBaseDN = "dc=example,dc=com"

func testLayout(t *testing.T) *Layout {
	t.Helper()
	layout, err := NewLayout(testBaseDN, "ou=People", "ou=groups")
	require.NoError(t, err)
	return layout
}

func testSession(conn Conn) *Session {
	return &Session{id: "test-session", conn: conn, principal: "cn=admin," + testBaseDN, authenticated: true}
}

// MockConn implements Conn for tests that assert on individual requests.
type MockConn struct {
	mock.Mock
}

func (m *MockConn) Bind(username, password string) error {
	args := m.Called(username, password)
	return args.Error(0)
}

func (m *MockConn) ExternalBind() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockConn) GSSAPIBind(client ldap.GSSAPIClient, servicePrincipal, authzid string) error {
	args := m.Called(client, servicePrincipal, authzid)
	return args.Error(0)
}

func (m *MockConn) Unbind() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockConn) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockConn) IsClosing() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockConn) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	args := m.Called(req)
	result, _ := args.Get(0).(*ldap.SearchResult)
	return result, args.Error(1)
}

func (m *MockConn) Add(req *ldap.AddRequest) error {
	args := m.Called(req)
	return args.Error(0)
}

func (m *MockConn) Modify(req *ldap.ModifyRequest) error {
	args := m.Called(req)
	return args.Error(0)
}

func (m *MockConn) Del(req *ldap.DelRequest) error {
	args := m.Called(req)
	return args.Error(0)
}

// memConn is the in-memory directory shared with the provider tests.
type memConn = ldaptest.Server

// seedDirectory returns a memConn holding the root, both containers and the
// given users.
func seedDirectory(uids ...string) *memConn {
	entries := []*ldap.Entry{
		ldap.NewEntry(testBaseDN, map[string][]string{"objectClass": {"top", "domain"}, "dc": {"example"}}),
		ldap.NewEntry("ou=People,"+testBaseDN, map[string][]string{"objectClass": {"top", "organizationalUnit"}, "ou": {"People"}}),
		ldap.NewEntry("ou=groups,"+testBaseDN, map[string][]string{"objectClass": {"top", "organizationalUnit"}, "ou": {"groups"}}),
	}
	for _, uid := range uids {
		entries = append(entries, userEntry(uid))
	}
	return ldaptest.NewServer(entries...)
}

func userEntry(uid string) *ldap.Entry {
	return ldap.NewEntry(userDN(uid), map[string][]string{
		"objectClass": {"top", "person", "organizationalPerson", "inetOrgPerson"},
		"uid":         {uid},
		"cn":          {strings.ToUpper(uid[:1]) + uid[1:]},
		"sn":          {"Tester"},
		"mail":        {uid + "@example.com"},
	})
}

func userDN(uid string) string {
	return "uid=" + uid + ",ou=People," + testBaseDN
}

func groupDN(name string) string {
	return "cn=" + name + ",ou=groups," + testBaseDN
}

// stubStore answers entity probes without a session.
type stubStore struct {
	existing map[string]bool
	entries  map[string]*ldap.Entry
	search   []*ldap.Entry
	err      error
	probes   int
}

func newStubStore(dns ...string) *stubStore {
	s := &stubStore{existing: make(map[string]bool), entries: make(map[string]*ldap.Entry)}
	for _, dn := range dns {
		s.existing[MustParsePath(dn).Key()] = true
	}
	return s
}

func (s *stubStore) Lookup(_ context.Context, path *Path) (*ldap.Entry, error) {
	s.probes++
	if s.err != nil {
		return nil, s.err
	}
	return s.entries[path.Key()], nil
}

func (s *stubStore) Exists(_ context.Context, path *Path) (bool, error) {
	s.probes++
	if s.err != nil {
		return false, s.err
	}
	return s.existing[path.Key()], nil
}

func (s *stubStore) Search(context.Context, *SearchRequest) ([]*ldap.Entry, error) {
	s.probes++
	return s.search, s.err
}
