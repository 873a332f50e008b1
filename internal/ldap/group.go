package ldap

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/go-ldap/ldap/v3"
)

const maxGroupNameLength = 64

// groupObjectClasses are written on every new group entry.
var groupObjectClasses = []string{"top", "groupOfUniqueNames"}

// Group is a groupOfUniqueNames entry under the groups container. Its owner
// is a user reference that can never be removed from the members.
type Group struct {
	Entity
	layout *Layout
}

// NewGroup returns an unbound group for layout. SetName binds it to a path.
func NewGroup(layout *Layout) *Group {
	g := &Group{Entity: newEntity(), layout: layout}
	g.stage(ModReplace, "objectClass", groupObjectClasses...)
	return g
}

// GroupFromEntry builds a persisted group from a fetched entry.
func GroupFromEntry(layout *Layout, entry *ldap.Entry) (*Group, error) {
	e, err := entityFromEntry(entry)
	if err != nil {
		return nil, err
	}
	return &Group{Entity: e, layout: layout}, nil
}

// Result returns the group together with its accumulated errors.
func (g *Group) Result() (*Group, error) {
	return g, g.validationError()
}

// SetName validates name, probes the store for an existing group with the
// same name and binds the group to its path.
func (g *Group) SetName(ctx context.Context, store Store, name string) *Group {
	if g.state == StatePersisted {
		if name != g.Name() {
			g.AddError("cn", "Group name can't be changed")
		}
		return g
	}

	if name == "" {
		g.AddError("cn", "Group name can't be empty")
		return g
	}
	if utf8.RuneCountInString(name) > maxGroupNameLength {
		g.AddError("cn", fmt.Sprintf("Group name can't have more than %d characters", maxGroupNameLength))
	}

	if g.layout == nil {
		g.fail(newKindError("set_name", KindValidation, "", "group has no layout", nil))
		return g
	}
	path, err := g.layout.GroupPath(name)
	if err != nil {
		g.AddError("cn", "Group name is not valid")
		return g
	}

	found, err := store.Exists(ctx, path)
	if err != nil {
		g.fail(WrapError("probe_group", err))
		return g
	}
	if found {
		g.addError("cn", KindDuplicate, "A group with this name already exists")
	}

	g.bind(path)
	g.stage(ModReplace, "cn", name)
	return g
}

// SetDescription sets the description. An empty value removes it.
func (g *Group) SetDescription(description string) *Group {
	if utf8.RuneCountInString(description) > maxValueLength {
		g.AddError("description", fmt.Sprintf("The description of the group can't have more than %d characters", maxValueLength))
	}
	g.set("description", description)
	return g
}

// Name returns the group name.
func (g *Group) Name() string {
	if cn := g.Get("cn"); cn != "" {
		return cn
	}
	if g.path != nil {
		return g.path.LeafValue()
	}
	return ""
}

func (g *Group) Description() string { return g.Get("description") }

// Owner returns the cached owner reference.
func (g *Group) Owner() string { return g.Get("owner") }

// Members returns the cached member references.
func (g *Group) Members() []string { return g.Values("uniqueMember") }
