package ldap

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// ouObjectClasses are written on every new container entry.
var ouObjectClasses = []string{"top", "organizationalUnit"}

// OU is an organizationalUnit entry holding users or groups.
type OU struct {
	Entity
}

// NewOU returns a transient container entry for path. The leaf of path must
// be an ou component.
func NewOU(path *Path, description string) (*OU, error) {
	if path == nil {
		return nil, newKindError("new_ou", KindValidation, "", "path is required", ErrMalformedPath)
	}
	attrType, name := path.Leaf()
	if !strings.EqualFold(attrType, "ou") {
		return nil, newKindError("new_ou", KindValidation, path.String(),
			fmt.Sprintf("container must be named by ou, got %s", attrType), nil)
	}

	o := &OU{Entity: newEntity()}
	o.bind(path)
	o.stage(ModReplace, "objectClass", ouObjectClasses...)
	o.stage(ModReplace, "ou", name)
	if description != "" {
		o.stage(ModReplace, "description", description)
	}
	return o, nil
}

// OUFromEntry builds a persisted container from a fetched entry.
func OUFromEntry(entry *ldap.Entry) (*OU, error) {
	e, err := entityFromEntry(entry)
	if err != nil {
		return nil, err
	}
	return &OU{Entity: e}, nil
}

// Name returns the ou value.
func (o *OU) Name() string {
	if name := o.Get("ou"); name != "" {
		return name
	}
	return o.path.LeafValue()
}

// EnsureContainers creates the people and groups containers of the layout
// when they are missing and returns the paths it created. The root entry
// itself must already exist.
func (d *Directory) EnsureContainers(ctx context.Context, s *Session) ([]*Path, error) {
	root, err := d.Lookup(ctx, s, d.layout.Root())
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, newKindError("ensure_containers", KindNotFound, d.layout.Root().String(),
			"root entry does not exist", nil)
	}

	var created []*Path
	for _, path := range []*Path{d.layout.People(), d.layout.Groups()} {
		found, err := d.Exists(ctx, s, path)
		if err != nil {
			return created, err
		}
		if found {
			d.logger.Debug("Container already exists", map[string]any{"dn": path.String()})
			continue
		}

		ou, err := NewOU(path, "")
		if err != nil {
			return created, err
		}
		if err := d.Insert(ctx, s, ou); err != nil {
			return created, err
		}
		d.logger.Info("Container created", map[string]any{"dn": path.String()})
		created = append(created, path)
	}

	return created, nil
}
