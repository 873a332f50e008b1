package ldap

import (
	"context"
	"fmt"
	"time"

	"github.com/go-ldap/ldap/v3"
)

// Directory is the stateless service used to read and write entities. One
// Directory serves any number of sessions; every method takes the session to
// run on.
type Directory struct {
	layout  *Layout
	logger  Logger
	metrics *Metrics
}

// NewDirectory returns a Directory for layout. logger and metrics may be nil.
func NewDirectory(layout *Layout, logger Logger, metrics *Metrics) *Directory {
	if logger == nil {
		logger = NopLogger{}
	}
	return &Directory{layout: layout, logger: logger, metrics: metrics}
}

// Layout returns the root context of the directory.
func (d *Directory) Layout() *Layout {
	return d.layout
}

// BuildPath parses text into a Path.
func (d *Directory) BuildPath(text string) (*Path, error) {
	return ParsePath(text)
}

// Lookup returns the entry at path, or nil when there is none. Several
// entries at one path are reported as ErrAmbiguousEntry.
func (d *Directory) Lookup(ctx context.Context, s *Session, path *Path) (*ldap.Entry, error) {
	if path == nil {
		return nil, newKindError("lookup", KindValidation, "", "path is required", ErrMalformedPath)
	}

	start := time.Now()
	entries, err := d.search(ctx, s, &SearchRequest{Base: path, Scope: ScopeBaseObject})
	if err != nil {
		if IsNotFoundError(err) {
			d.metrics.observeOperation("lookup", start, nil)
			return nil, nil
		}
		d.metrics.observeOperation("lookup", start, err)
		return nil, WrapError("lookup", err)
	}

	switch len(entries) {
	case 0:
		d.metrics.observeOperation("lookup", start, nil)
		return nil, nil
	case 1:
		d.metrics.observeOperation("lookup", start, nil)
		return entries[0], nil
	}

	err = newKindError("lookup", KindConsistency, path.String(),
		fmt.Sprintf("%d entries found", len(entries)), ErrAmbiguousEntry)
	d.logger.Error("Ambiguous directory entry", map[string]any{
		"dn":      path.String(),
		"entries": len(entries),
	})
	d.metrics.observeOperation("lookup", start, err)
	return nil, err
}

// Exists reports whether an entry lives at path.
func (d *Directory) Exists(ctx context.Context, s *Session, path *Path) (bool, error) {
	entry, err := d.Lookup(ctx, s, path)
	if err != nil {
		return false, err
	}
	return entry != nil, nil
}

// Search runs req. A missing base is reported as a NotFound error.
func (d *Directory) Search(ctx context.Context, s *Session, req *SearchRequest) ([]*ldap.Entry, error) {
	if req == nil || req.Base == nil {
		return nil, newKindError("search", KindValidation, "", "search base is required", ErrMalformedPath)
	}

	start := time.Now()
	entries, err := d.search(ctx, s, req)
	d.metrics.observeOperation("search", start, err)
	if err != nil {
		return nil, WrapError("search", err)
	}
	return entries, nil
}

func (d *Directory) search(ctx context.Context, s *Session, req *SearchRequest) ([]*ldap.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	conn, err := s.connection()
	if err != nil {
		return nil, err
	}

	d.logger.Trace("Searching directory", map[string]any{
		"base":   req.Base.String(),
		"scope":  req.Scope.String(),
		"filter": req.Filter,
	})

	result, err := conn.Search(req.toLDAP())
	if err != nil {
		ldapErr := NewLDAPError("search", err)
		ldapErr.DN = req.Base.String()
		return nil, ldapErr
	}
	return result.Entries, nil
}

// Insert writes obj as one create operation. Nothing is sent while obj holds
// errors; the aggregated *ValidationError is returned instead.
func (d *Directory) Insert(ctx context.Context, s *Session, obj Object) error {
	e := obj.entity()
	fields := map[string]any{"dn": e.DN()}

	if err := e.validationError(); err != nil {
		fields["error"] = err.Error()
		d.logger.Warn("Entity has errors, skipping insert", fields)
		return err
	}
	if e.path == nil {
		return newKindError("insert", KindValidation, "", "entity has no path", ErrNotBound)
	}
	if e.state == StatePersisted {
		return newKindError("insert", KindDuplicate, e.DN(), "entity already exists", ErrAlreadyPersisted)
	}

	start := time.Now()
	err := LogOperation(d.logger, "insert", fields, func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := s.connection()
		if err != nil {
			return err
		}
		if err := conn.Add(e.addRequest()); err != nil {
			ldapErr := NewLDAPError("insert", err)
			ldapErr.DN = e.DN()
			return ldapErr
		}
		return nil
	})
	d.metrics.observeOperation("insert", start, err)
	if err != nil {
		return WrapError("insert", err)
	}

	delete(e.attrs, "userpassword")
	e.markPersisted()
	return nil
}

// ApplyModifications sends each pending modification of obj as its own
// request, in order. It is not atomic: when a request fails, the ones before
// it stay applied and the failed one and the rest remain pending.
func (d *Directory) ApplyModifications(ctx context.Context, s *Session, obj Object) error {
	e := obj.entity()
	fields := map[string]any{
		"dn":      e.DN(),
		"pending": len(e.pending),
	}

	if err := e.validationError(); err != nil {
		fields["error"] = err.Error()
		d.logger.Warn("Entity has errors, skipping modifications", fields)
		return err
	}
	if len(e.pending) == 0 {
		return nil
	}
	if e.state != StatePersisted {
		return newKindError("apply_modifications", KindValidation, e.DN(), "entity is not persisted", nil)
	}

	conn, err := s.connection()
	if err != nil {
		return WrapError("apply_modifications", err)
	}

	dn := e.DN()
	for i, m := range e.pending {
		if err := ctx.Err(); err != nil {
			e.pending = e.pending[i:]
			return err
		}

		start := time.Now()
		err := conn.Modify(m.toRequest(dn))
		d.metrics.observeOperation("modify", start, err)
		if err != nil {
			e.pending = e.pending[i:]

			ldapErr := NewLDAPError("modify", err)
			ldapErr.DN = dn
			fields["applied"] = i
			fields["attribute"] = m.Attribute
			LogLDAPError(d.logger, "apply_modifications", ldapErr, fields)
			return ldapErr
		}

		d.logger.Debug("Modification applied", map[string]any{
			"dn":        dn,
			"op":        m.Op.String(),
			"attribute": m.Attribute,
		})
	}

	e.pending = nil
	d.logger.Debug("All modifications applied", fields)
	return nil
}

// Delete removes the entry behind obj. obj becomes a stale handle.
func (d *Directory) Delete(ctx context.Context, s *Session, obj Object) error {
	e := obj.entity()
	if e.path == nil {
		return newKindError("delete", KindValidation, "", "entity has no path", ErrNotBound)
	}

	start := time.Now()
	err := LogOperation(d.logger, "delete", map[string]any{"dn": e.DN()}, func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := s.connection()
		if err != nil {
			return err
		}
		if err := conn.Del(ldap.NewDelRequest(e.DN(), nil)); err != nil {
			ldapErr := NewLDAPError("delete", err)
			ldapErr.DN = e.DN()
			return ldapErr
		}
		return nil
	})
	d.metrics.observeOperation("delete", start, err)
	return WrapError("delete", err)
}

// FindUser fetches the user at path.
func (d *Directory) FindUser(ctx context.Context, s *Session, path *Path) (*User, error) {
	entry, err := d.fetch(ctx, s, path)
	if err != nil {
		return nil, err
	}
	return UserFromEntry(d.layout, entry)
}

// FindUserByUID fetches the user with the given uid under the people container.
func (d *Directory) FindUserByUID(ctx context.Context, s *Session, uid string) (*User, error) {
	path, err := d.layout.UserPath(uid)
	if err != nil {
		return nil, err
	}
	return d.FindUser(ctx, s, path)
}

// FindGroup fetches the group at path.
func (d *Directory) FindGroup(ctx context.Context, s *Session, path *Path) (*Group, error) {
	entry, err := d.fetch(ctx, s, path)
	if err != nil {
		return nil, err
	}
	return GroupFromEntry(d.layout, entry)
}

// FindGroupByName fetches the group with the given name under the groups container.
func (d *Directory) FindGroupByName(ctx context.Context, s *Session, name string) (*Group, error) {
	path, err := d.layout.GroupPath(name)
	if err != nil {
		return nil, err
	}
	return d.FindGroup(ctx, s, path)
}

// Reload refreshes the cached attributes of obj from the store. Pending
// modifications and recorded errors are discarded.
func (d *Directory) Reload(ctx context.Context, s *Session, obj Object) error {
	e := obj.entity()
	entry, err := d.fetch(ctx, s, e.path)
	if err != nil {
		return err
	}
	fresh, err := entityFromEntry(entry)
	if err != nil {
		return err
	}
	*e = fresh
	return nil
}

func (d *Directory) fetch(ctx context.Context, s *Session, path *Path) (*ldap.Entry, error) {
	entry, err := d.Lookup(ctx, s, path)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, newKindError("lookup", KindNotFound, path.String(), "entry not found", nil)
	}
	return entry, nil
}

// Bind returns a Store that runs every read on s.
func (d *Directory) Bind(s *Session) Store {
	return &sessionStore{directory: d, session: s}
}

type sessionStore struct {
	directory *Directory
	session   *Session
}

func (st *sessionStore) Lookup(ctx context.Context, path *Path) (*ldap.Entry, error) {
	return st.directory.Lookup(ctx, st.session, path)
}

func (st *sessionStore) Exists(ctx context.Context, path *Path) (bool, error) {
	return st.directory.Exists(ctx, st.session, path)
}

func (st *sessionStore) Search(ctx context.Context, req *SearchRequest) ([]*ldap.Entry, error) {
	return st.directory.Search(ctx, st.session, req)
}
