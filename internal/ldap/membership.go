package ldap

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

const memberAttribute = "uniqueMember"

// SetOwner sets the owner reference. The first assignment adds the
// attribute, later ones replace it.
func (g *Group) SetOwner(ref string) *Group {
	if strings.TrimSpace(ref) == "" {
		g.AddError("owner", "The owner can't be empty")
		return g
	}

	path, err := ParsePath(ref)
	if err != nil {
		g.AddError("owner", "The owner is not a valid entry")
		return g
	}

	name := path.LeafValue()
	if strings.TrimSpace(name) == "" {
		g.AddError("owner", "The owner can't be empty")
		return g
	}
	if utf8.RuneCountInString(name) > maxValueLength {
		g.AddError("owner", fmt.Sprintf("The owner can't have more than %d characters", maxValueLength))
	}

	g.set("owner", path.String())
	return g
}

// SetOwnerUID sets the owner to the user with the given uid.
func (g *Group) SetOwnerUID(uid string) *Group {
	path, ok := g.userPath("owner", uid)
	if !ok {
		return g
	}
	return g.SetOwner(path.String())
}

// AddMember adds the entry at ref as a member. The entry must exist in store
// and must not already be a member.
func (g *Group) AddMember(ctx context.Context, store Store, ref string) *Group {
	path, name, ok := g.memberRef(ref)
	if !ok {
		return g
	}

	found, err := store.Exists(ctx, path)
	if err != nil {
		g.fail(WrapError("probe_member", err))
		return g
	}
	if !found {
		g.addError("member", KindNotFound, fmt.Sprintf("Member, %s, does not exist", name))
		return g
	}

	if g.isMember(path) {
		g.addError("member", KindDuplicate, fmt.Sprintf("Member, %s, is part of this group", name))
		return g
	}

	g.stage(ModAdd, memberAttribute, path.String())
	return g
}

// AddMemberUID adds the user with the given uid as a member.
func (g *Group) AddMemberUID(ctx context.Context, store Store, uid string) *Group {
	path, ok := g.userPath("member", uid)
	if !ok {
		return g
	}
	return g.AddMember(ctx, store, path.String())
}

// RemoveMember removes ref from the members. The owner can't be removed and
// removing a non-member is an error.
func (g *Group) RemoveMember(ref string) *Group {
	path, name, ok := g.memberRef(ref)
	if !ok {
		return g
	}

	if owner := g.pendingValue("owner"); owner != "" && sameValue(owner, path.String()) {
		g.addError("member", KindConstraint,
			fmt.Sprintf("Member, %s, is owner of the group and it can't be removed", name))
		return g
	}

	if !g.isMember(path) {
		g.addError("member", KindNotFound,
			fmt.Sprintf("Member, %s, does not exist in group, %s", name, g.Name()))
		return g
	}

	g.stage(ModRemove, memberAttribute, path.String())
	return g
}

// RemoveMemberUID removes the user with the given uid from the members.
func (g *Group) RemoveMemberUID(uid string) *Group {
	path, ok := g.userPath("member", uid)
	if !ok {
		return g
	}
	return g.RemoveMember(path.String())
}

// GetMembers resolves every member reference with one lookup each. A
// reference without an entry is reported as a NotFound error.
func (g *Group) GetMembers(ctx context.Context, store Store) ([]*User, error) {
	refs := g.Members()
	users := make([]*User, 0, len(refs))

	for _, ref := range refs {
		path, err := ParsePath(ref)
		if err != nil {
			return nil, err
		}
		entry, err := store.Lookup(ctx, path)
		if err != nil {
			return nil, WrapError("get_members", err)
		}
		if entry == nil {
			return nil, newKindError("get_members", KindNotFound, path.String(),
				fmt.Sprintf("member of %s does not exist", g.DN()), nil)
		}
		user, err := UserFromEntry(g.layout, entry)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, nil
}

// effectiveMembers replays pending member modifications over the cache.
func (g *Group) effectiveMembers() []string {
	members := g.Members()
	for _, m := range g.pending {
		if !strings.EqualFold(m.Attribute, memberAttribute) {
			continue
		}
		switch m.Op {
		case ModAdd:
			for _, v := range m.Values {
				if !containsValue(members, v) {
					members = append(members, v)
				}
			}
		case ModReplace:
			members = dedupe(m.Values)
		case ModRemove:
			if len(m.Values) == 0 {
				members = nil
				continue
			}
			var kept []string
			for _, v := range members {
				if !containsValue(m.Values, v) {
					kept = append(kept, v)
				}
			}
			members = kept
		}
	}
	return members
}

func (g *Group) isMember(path *Path) bool {
	return containsValue(g.effectiveMembers(), path.String())
}

// memberRef validates a member reference and returns its path and leaf value.
func (g *Group) memberRef(ref string) (*Path, string, bool) {
	path, err := ParsePath(ref)
	if err != nil {
		g.AddError("member", "Member entry is not valid")
		return nil, "", false
	}

	name := path.LeafValue()
	if strings.TrimSpace(name) == "" {
		g.AddError("member", fmt.Sprintf("Member, %s, can not be empty", name))
		return nil, "", false
	}
	if utf8.RuneCountInString(name) > maxValueLength {
		g.AddError("member", fmt.Sprintf("Member can't have more than %d characters", maxValueLength))
		return nil, "", false
	}
	return path, name, true
}

func (g *Group) userPath(field, uid string) (*Path, bool) {
	if strings.TrimSpace(uid) == "" {
		if field == "owner" {
			g.AddError(field, "The owner can't be empty")
		} else {
			g.AddError(field, "Member can't be empty")
		}
		return nil, false
	}
	if g.layout == nil {
		g.fail(newKindError("user_path", KindValidation, "", "group has no layout", nil))
		return nil, false
	}
	path, err := g.layout.UserPath(uid)
	if err != nil {
		g.AddError(field, "Member entry is not valid")
		return nil, false
	}
	return path, true
}
