package ldap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// ErrMalformedPath is returned when a distinguished name cannot be parsed.
var ErrMalformedPath = errors.New("malformed path")

// Path is a parsed distinguished name, most-specific component first.
type Path struct {
	dn   *ldap.DN
	text string
}

// ParsePath parses an RFC 4514 distinguished name.
//
// Input:  "uid=jdoe,ou=People,dc=example,dc=com"
// Output: a Path whose Leaf is ("uid", "jdoe").
func ParsePath(text string) (*Path, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &LDAPError{
			Operation: "parse_path",
			Kind:      KindValidation,
			Category:  ErrorCategoryValidation,
			Message:   "path cannot be empty",
			Cause:     ErrMalformedPath,
		}
	}

	dn, err := ldap.ParseDN(text)
	if err != nil || len(dn.RDNs) == 0 {
		if err == nil {
			err = ErrMalformedPath
		}
		return nil, &LDAPError{
			Operation: "parse_path",
			Kind:      KindValidation,
			Category:  ErrorCategoryValidation,
			Message:   fmt.Sprintf("invalid DN syntax: %v", err),
			DN:        text,
			Cause:     errors.Join(ErrMalformedPath, err),
		}
	}

	return newPath(dn), nil
}

// MustParsePath is like ParsePath but panics on malformed input.
func MustParsePath(text string) *Path {
	p, err := ParsePath(text)
	if err != nil {
		panic(err)
	}
	return p
}

func newPath(dn *ldap.DN) *Path {
	return &Path{dn: dn, text: formatDN(dn)}
}

// formatDN rebuilds the textual form with values re-escaped, since ParseDN
// returns unescaped values.
func formatDN(dn *ldap.DN) string {
	rdns := make([]string, 0, len(dn.RDNs))
	for _, rdn := range dn.RDNs {
		attrs := make([]string, 0, len(rdn.Attributes))
		for _, attr := range rdn.Attributes {
			attrs = append(attrs, attr.Type+"="+EscapeDNValue(attr.Value))
		}
		rdns = append(rdns, strings.Join(attrs, "+"))
	}
	return strings.Join(rdns, ",")
}

// String returns the RFC 4514 form of the path.
func (p *Path) String() string {
	if p == nil {
		return ""
	}
	return p.text
}

// Depth returns the number of relative components.
func (p *Path) Depth() int {
	return len(p.dn.RDNs)
}

// Leaf returns the attribute type and value of the most specific component.
func (p *Path) Leaf() (attrType, value string) {
	first := p.dn.RDNs[0].Attributes[0]
	return first.Type, first.Value
}

// LeafValue returns the value of the most specific component.
func (p *Path) LeafValue() string {
	_, v := p.Leaf()
	return v
}

// Parent returns the path without its leaf, or nil for a single-component path.
func (p *Path) Parent() *Path {
	if len(p.dn.RDNs) <= 1 {
		return nil
	}
	return newPath(&ldap.DN{RDNs: p.dn.RDNs[1:]})
}

// Child returns a new path with one component prepended. The value is
// escaped before use.
func (p *Path) Child(attrType, value string) (*Path, error) {
	return ParsePath(attrType + "=" + EscapeDNValue(value) + "," + p.text)
}

// Equal compares two paths case-insensitively.
func (p *Path) Equal(other *Path) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.dn.EqualFold(other.dn)
}

// IsDescendantOf reports whether p lies strictly below ancestor.
func (p *Path) IsDescendantOf(ancestor *Path) bool {
	if p == nil || ancestor == nil || len(p.dn.RDNs) <= len(ancestor.dn.RDNs) {
		return false
	}
	tail := &ldap.DN{RDNs: p.dn.RDNs[len(p.dn.RDNs)-len(ancestor.dn.RDNs):]}
	return tail.EqualFold(ancestor.dn)
}

// Key returns a normalized form suitable for map keys and set membership.
func (p *Path) Key() string {
	return strings.ToLower(p.text)
}

// NormalizeDNCase upper-cases attribute type descriptors and leaves values
// untouched, so that two spellings of the same DN compare equal as strings.
//
// Input:  "cn=admins,ou=groups,dc=example,dc=com"
// Output: "CN=admins,OU=groups,DC=example,DC=com"
func NormalizeDNCase(dn string) (string, error) {
	if strings.TrimSpace(dn) == "" {
		return "", nil
	}
	p, err := ParsePath(dn)
	if err != nil {
		return "", err
	}
	for _, rdn := range p.dn.RDNs {
		for _, attr := range rdn.Attributes {
			attr.Type = strings.ToUpper(attr.Type)
		}
	}
	return formatDN(p.dn), nil
}

// Layout is the root context of a managed subtree. It replaces process-wide
// root state: every path-building and entity-construction call receives it
// explicitly.
type Layout struct {
	root   *Path
	people *Path
	groups *Path
}

// NewLayout builds a layout from the root DN and the relative names of the
// people and groups containers.
func NewLayout(rootDN, peopleRDN, groupsRDN string) (*Layout, error) {
	root, err := ParsePath(rootDN)
	if err != nil {
		return nil, fmt.Errorf("root: %w", err)
	}
	people, err := ParsePath(peopleRDN + "," + root.String())
	if err != nil {
		return nil, fmt.Errorf("people container: %w", err)
	}
	groups, err := ParsePath(groupsRDN + "," + root.String())
	if err != nil {
		return nil, fmt.Errorf("groups container: %w", err)
	}
	if people.Depth() != root.Depth()+1 || groups.Depth() != root.Depth()+1 {
		return nil, fmt.Errorf("containers must be direct children of %s", root)
	}
	return &Layout{root: root, people: people, groups: groups}, nil
}

// Root returns the top of the managed namespace.
func (l *Layout) Root() *Path { return l.root }

// People returns the container holding user entries.
func (l *Layout) People() *Path { return l.people }

// Groups returns the container holding group entries.
func (l *Layout) Groups() *Path { return l.groups }

// UserPath returns uid=<uid> under the people container.
func (l *Layout) UserPath(uid string) (*Path, error) {
	return l.people.Child("uid", uid)
}

// GroupPath returns cn=<name> under the groups container.
func (l *Layout) GroupPath(name string) (*Path, error) {
	return l.groups.Child("cn", name)
}

// Contains reports whether p lies under the layout root.
func (l *Layout) Contains(p *Path) bool {
	return p.IsDescendantOf(l.root)
}
