// Package ldaptest provides an in-memory directory server for tests.
package ldaptest

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-ldap/ldap/v3"
)

// Server is an in-memory directory that satisfies the connection interface
// of the ldap package. Filters are limited to (objectClass=*) and single
// (attr=value) equality assertions.
type Server struct {
	mu      sync.Mutex
	entries map[string]*ldap.Entry
	creds   map[string]string
	closed  bool

	searches int
	binds    []string
	adds     []*ldap.AddRequest
	modifies []*ldap.ModifyRequest
	deletes  []*ldap.DelRequest

	failModifyAt int
	modifyErr    error
}

// NewServer returns a server holding entries.
func NewServer(entries ...*ldap.Entry) *Server {
	s := &Server{
		entries: make(map[string]*ldap.Entry),
		creds:   make(map[string]string),
	}
	for _, e := range entries {
		s.entries[Key(e.DN)] = e
	}
	return s
}

// Key returns the case-insensitive lookup key of dn. It panics on malformed
// input.
func Key(dn string) string {
	parsed, err := ldap.ParseDN(dn)
	if err != nil {
		panic(fmt.Sprintf("ldaptest: %v", err))
	}
	return key(parsed)
}

func key(dn *ldap.DN) string {
	parts := make([]string, 0, len(dn.RDNs))
	for _, rdn := range dn.RDNs {
		attrs := make([]string, 0, len(rdn.Attributes))
		for _, a := range rdn.Attributes {
			attrs = append(attrs, strings.ToLower(a.Type)+"="+strings.ToLower(a.Value))
		}
		parts = append(parts, strings.Join(attrs, "+"))
	}
	return strings.Join(parts, ",")
}

// SetCredentials makes Bind require password for dn. Without any
// credentials every simple bind succeeds.
func (s *Server) SetCredentials(dn, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[Key(dn)] = password
}

// Put stores entry, replacing any entry with the same DN.
func (s *Server) Put(entry *ldap.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[Key(entry.DN)] = entry
}

// Get returns the entry at dn, or nil.
func (s *Server) Get(dn string) *ldap.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[Key(dn)]
}

// FailModifyAt makes the n-th Modify call (1-based, counted from the start)
// return err. Zero disables the failure.
func (s *Server) FailModifyAt(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failModifyAt = n
	s.modifyErr = err
}

// Searches returns the number of searches served.
func (s *Server) Searches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searches
}

// Binds returns the DNs of successful simple binds.
func (s *Server) Binds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.binds)
}

// Adds returns the add requests received.
func (s *Server) Adds() []*ldap.AddRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.adds)
}

// Modifies returns the modify requests received, failed ones included.
func (s *Server) Modifies() []*ldap.ModifyRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.modifies)
}

// Deletes returns the delete requests received.
func (s *Server) Deletes() []*ldap.DelRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.deletes)
}

func (s *Server) Bind(username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.creds) > 0 {
		want, ok := s.creds[Key(username)]
		if !ok || want != password {
			return ldap.NewError(ldap.LDAPResultInvalidCredentials, errors.New("invalid credentials"))
		}
	}
	s.binds = append(s.binds, username)
	return nil
}

func (s *Server) ExternalBind() error                                { return nil }
func (s *Server) GSSAPIBind(ldap.GSSAPIClient, string, string) error { return nil }
func (s *Server) Unbind() error                                      { return s.Close() }

func (s *Server) IsClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Server) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches++

	base, err := ldap.ParseDN(req.BaseDN)
	if err != nil {
		return nil, ldap.NewError(ldap.LDAPResultInvalidDNSyntax, err)
	}
	if _, ok := s.entries[key(base)]; !ok {
		return nil, noSuchObject(req.BaseDN)
	}

	result := &ldap.SearchResult{}
	for _, entry := range s.entries {
		dn, _ := ldap.ParseDN(entry.DN)
		switch req.Scope {
		case ldap.ScopeBaseObject:
			if !dn.EqualFold(base) {
				continue
			}
		case ldap.ScopeSingleLevel:
			if len(dn.RDNs) != len(base.RDNs)+1 || !base.AncestorOfFold(dn) {
				continue
			}
		default:
			if !dn.EqualFold(base) && !base.AncestorOfFold(dn) {
				continue
			}
		}
		if matchesFilter(entry, req.Filter) {
			result.Entries = append(result.Entries, entry)
		}
	}
	slices.SortFunc(result.Entries, func(a, b *ldap.Entry) int { return strings.Compare(a.DN, b.DN) })
	return result, nil
}

func (s *Server) Add(req *ldap.AddRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adds = append(s.adds, req)

	k := Key(req.DN)
	if _, ok := s.entries[k]; ok {
		return ldap.NewError(ldap.LDAPResultEntryAlreadyExists, errors.New("entry already exists"))
	}
	attrs := make(map[string][]string, len(req.Attributes))
	for _, a := range req.Attributes {
		attrs[a.Type] = slices.Clone(a.Vals)
	}
	s.entries[k] = ldap.NewEntry(req.DN, attrs)
	return nil
}

func (s *Server) Modify(req *ldap.ModifyRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modifies = append(s.modifies, req)

	if s.failModifyAt > 0 && len(s.modifies) == s.failModifyAt {
		return s.modifyErr
	}

	k := Key(req.DN)
	entry, ok := s.entries[k]
	if !ok {
		return noSuchObject(req.DN)
	}

	attrs := make(map[string][]string)
	for _, a := range entry.Attributes {
		attrs[a.Name] = slices.Clone(a.Values)
	}
	for _, change := range req.Changes {
		name := change.Modification.Type
		for existing := range attrs {
			if strings.EqualFold(existing, name) {
				name = existing
			}
		}
		switch change.Operation {
		case ldap.AddAttribute:
			for _, v := range change.Modification.Vals {
				if slices.ContainsFunc(attrs[name], func(e string) bool { return SameValue(e, v) }) {
					return ldap.NewError(ldap.LDAPResultAttributeOrValueExists, fmt.Errorf("%s: value exists", name))
				}
				attrs[name] = append(attrs[name], v)
			}
		case ldap.ReplaceAttribute:
			attrs[name] = slices.Clone(change.Modification.Vals)
		case ldap.DeleteAttribute:
			if len(change.Modification.Vals) == 0 {
				delete(attrs, name)
				continue
			}
			attrs[name] = slices.DeleteFunc(attrs[name], func(v string) bool {
				return slices.ContainsFunc(change.Modification.Vals, func(d string) bool { return SameValue(d, v) })
			})
		}
		if len(attrs[name]) == 0 {
			delete(attrs, name)
		}
	}
	s.entries[k] = ldap.NewEntry(entry.DN, attrs)
	return nil
}

func (s *Server) Del(req *ldap.DelRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, req)

	k := Key(req.DN)
	if _, ok := s.entries[k]; !ok {
		return noSuchObject(req.DN)
	}
	delete(s.entries, k)
	return nil
}

// Client is one connection to a Server. Closing it leaves the server and
// its entries usable by other clients.
type Client struct {
	*Server
	closed atomic.Bool
}

// Dial returns a new connection to s.
func (s *Server) Dial() *Client {
	return &Client{Server: s}
}

func (c *Client) Unbind() error   { return c.Close() }
func (c *Client) Close() error    { c.closed.Store(true); return nil }
func (c *Client) IsClosing() bool { return c.closed.Load() }

// SameValue compares attribute values as DNs when both parse, otherwise
// case-insensitively.
func SameValue(a, b string) bool {
	da, errA := ldap.ParseDN(a)
	db, errB := ldap.ParseDN(b)
	if errA == nil && errB == nil && len(da.RDNs) > 0 && len(db.RDNs) > 0 {
		return da.EqualFold(db)
	}
	return strings.EqualFold(a, b)
}

func noSuchObject(dn string) error {
	return ldap.NewError(ldap.LDAPResultNoSuchObject, fmt.Errorf("no such object: %s", dn))
}

func matchesFilter(entry *ldap.Entry, filter string) bool {
	attr, value, ok := strings.Cut(strings.TrimSuffix(strings.TrimPrefix(filter, "("), ")"), "=")
	if !ok {
		return false
	}
	value = unescapeFilterValue(value)
	values := entry.GetEqualFoldAttributeValues(attr)
	if value == "*" {
		return len(values) > 0
	}
	return slices.ContainsFunc(values, func(v string) bool { return strings.EqualFold(v, value) })
}

func unescapeFilterValue(v string) string {
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		if v[i] == '\\' && i+2 < len(v) {
			var c byte
			if _, err := fmt.Sscanf(v[i+1:i+3], "%02x", &c); err == nil {
				b.WriteByte(c)
				i += 2
				continue
			}
		}
		b.WriteByte(v[i])
	}
	return b.String()
}
