package ldap

import (
	"context"
	"slices"
	"sort"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// EntityState tracks whether an entity exists remotely.
type EntityState int

const (
	// StateUnbound entities have no path yet.
	StateUnbound EntityState = iota
	// StateTransient entities have a path but no remote entry.
	StateTransient
	// StatePersisted entities mirror a remote entry.
	StatePersisted
)

func (s EntityState) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateTransient:
		return "transient"
	case StatePersisted:
		return "persisted"
	default:
		return "unknown"
	}
}

// ModOp is the operation of a staged modification.
type ModOp int

const (
	ModAdd ModOp = iota
	ModReplace
	ModRemove
)

func (o ModOp) String() string {
	switch o {
	case ModAdd:
		return "add"
	case ModReplace:
		return "replace"
	case ModRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Modification is one staged change to one attribute. A Remove with no
// values deletes the whole attribute.
type Modification struct {
	Op        ModOp
	Attribute string
	Values    []string
}

func (m Modification) toRequest(dn string) *ldap.ModifyRequest {
	req := ldap.NewModifyRequest(dn, nil)
	switch m.Op {
	case ModAdd:
		req.Add(m.Attribute, m.Values)
	case ModReplace:
		req.Replace(m.Attribute, m.Values)
	case ModRemove:
		req.Delete(m.Attribute, m.Values)
	}
	return req
}

// Store is the read side of the directory as seen by entity setters.
type Store interface {
	Lookup(ctx context.Context, path *Path) (*ldap.Entry, error)
	Exists(ctx context.Context, path *Path) (bool, error)
	Search(ctx context.Context, req *SearchRequest) ([]*ldap.Entry, error)
}

// Object is implemented by every entity type the directory can write.
type Object interface {
	entity() *Entity
}

type attribute struct {
	name   string
	values []string
}

// Entity is the in-memory mirror of a directory entry: an attribute snapshot,
// a queue of pending modifications and the accumulated field errors.
type Entity struct {
	path    *Path
	state   EntityState
	attrs   map[string]*attribute
	pending []Modification
	errors  []*FieldError
	err     error
	sid     string
}

func newEntity() Entity {
	return Entity{attrs: make(map[string]*attribute)}
}

// entityFromEntry builds a Persisted entity from a fetched entry. Write-only
// attributes are dropped.
func entityFromEntry(entry *ldap.Entry) (Entity, error) {
	e := newEntity()

	if entry == nil {
		return e, newKindError("read_entry", KindNotFound, "", "entry is nil", nil)
	}

	path, err := ParsePath(entry.DN)
	if err != nil {
		return e, err
	}
	e.path = path
	e.state = StatePersisted

	for _, a := range entry.Attributes {
		key := strings.ToLower(a.Name)
		switch key {
		case "userpassword":
			continue
		case "objectsid":
			e.sid = decodeObjectSID(a)
			continue
		}
		if len(a.Values) == 0 {
			continue
		}
		e.attrs[key] = &attribute{name: a.Name, values: slices.Clone(a.Values)}
	}

	return e, nil
}

func (e *Entity) entity() *Entity { return e }

// Path returns the entity's path, or nil while unbound.
func (e *Entity) Path() *Path { return e.path }

// DN returns the textual path, or "" while unbound.
func (e *Entity) DN() string { return e.path.String() }

// State returns the lifecycle state.
func (e *Entity) State() EntityState { return e.state }

// ObjectSID returns the decoded objectSid of an Active Directory entry, or "".
func (e *Entity) ObjectSID() string { return e.sid }

// Get returns the first cached value of name, or "".
func (e *Entity) Get(name string) string {
	if a, ok := e.attrs[strings.ToLower(name)]; ok && len(a.values) > 0 {
		return a.values[0]
	}
	return ""
}

// Values returns the cached values of name.
func (e *Entity) Values(name string) []string {
	if a, ok := e.attrs[strings.ToLower(name)]; ok {
		return slices.Clone(a.values)
	}
	return nil
}

// Has reports whether name is present in the cached snapshot.
func (e *Entity) Has(name string) bool {
	_, ok := e.attrs[strings.ToLower(name)]
	return ok
}

// Attributes returns a copy of the cached snapshot.
func (e *Entity) Attributes() map[string][]string {
	out := make(map[string][]string, len(e.attrs))
	for _, a := range e.attrs {
		out[a.name] = slices.Clone(a.values)
	}
	return out
}

// PendingModifications returns a copy of the modification queue.
func (e *Entity) PendingModifications() []Modification {
	out := make([]Modification, len(e.pending))
	for i, m := range e.pending {
		out[i] = Modification{Op: m.Op, Attribute: m.Attribute, Values: slices.Clone(m.Values)}
	}
	return out
}

// AddError records a validation message for field. Messages accumulate.
func (e *Entity) AddError(field, message string) {
	e.addError(field, KindValidation, message)
}

func (e *Entity) addError(field string, kind ErrorKind, message string) {
	e.errors = append(e.errors, &FieldError{Field: field, Kind: kind, Message: message})
}

// Errors returns the messages recorded per field, in insertion order.
func (e *Entity) Errors() map[string][]string {
	out := make(map[string][]string)
	for _, fe := range e.errors {
		out[fe.Field] = append(out[fe.Field], fe.Message)
	}
	return out
}

// FieldErrors returns the recorded field errors with their kinds.
func (e *Entity) FieldErrors() []*FieldError {
	return slices.Clone(e.errors)
}

// ClearErrors drops the recorded messages for fields, or all of them when
// no field is given. The sticky collaborator error is kept.
func (e *Entity) ClearErrors(fields ...string) {
	if len(fields) == 0 {
		e.errors = nil
		return
	}
	e.errors = slices.DeleteFunc(e.errors, func(fe *FieldError) bool {
		return slices.Contains(fields, fe.Field)
	})
}

// HasErrors reports whether any remote write is blocked.
func (e *Entity) HasErrors() bool {
	return len(e.errors) > 0 || e.err != nil
}

// Err returns the first collaborator failure met by a store-probing setter.
func (e *Entity) Err() error {
	return e.err
}

func (e *Entity) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

// validationError returns the sticky failure, or the field errors as a
// *ValidationError, or nil.
func (e *Entity) validationError() error {
	if e.err != nil {
		return e.err
	}
	if len(e.errors) == 0 {
		return nil
	}
	return &ValidationError{DN: e.DN(), Fields: slices.Clone(e.errors)}
}

// bind assigns the path of a not yet persisted entity.
func (e *Entity) bind(path *Path) {
	e.path = path
	e.state = StateTransient
}

func (e *Entity) markPersisted() {
	e.state = StatePersisted
	e.pending = nil
}

// stage is the single diff function behind every setter. Entities that do not
// exist remotely amend the snapshot; persisted entities queue a modification
// and leave the snapshot untouched until the next fetch.
func (e *Entity) stage(op ModOp, name string, values ...string) {
	if e.state == StatePersisted {
		e.pending = append(e.pending, Modification{Op: op, Attribute: name, Values: slices.Clone(values)})
		return
	}

	key := strings.ToLower(name)
	a, ok := e.attrs[key]

	switch op {
	case ModAdd:
		if !ok {
			a = &attribute{name: name}
			e.attrs[key] = a
		}
		for _, v := range values {
			if !containsValue(a.values, v) {
				a.values = append(a.values, v)
			}
		}
		if len(a.values) == 0 {
			delete(e.attrs, key)
		}
	case ModReplace:
		if len(values) == 0 {
			delete(e.attrs, key)
			return
		}
		e.attrs[key] = &attribute{name: name, values: dedupe(values)}
	case ModRemove:
		if !ok {
			return
		}
		if len(values) == 0 {
			delete(e.attrs, key)
			return
		}
		a.values = slices.DeleteFunc(a.values, func(v string) bool {
			return containsValue(values, v)
		})
		if len(a.values) == 0 {
			delete(e.attrs, key)
		}
	}
}

// set stages a single-valued attribute: add when absent, replace otherwise.
// An attribute with a queued change counts as present, so setting it twice
// before an apply never stacks two adds.
func (e *Entity) set(name, value string) {
	if value == "" {
		if e.pendingValue(name) != "" {
			e.stage(ModRemove, name)
		}
		return
	}
	if e.Has(name) || e.hasPending(name) {
		e.stage(ModReplace, name, value)
		return
	}
	e.stage(ModAdd, name, value)
}

func (e *Entity) hasPending(name string) bool {
	return slices.ContainsFunc(e.pending, func(m Modification) bool {
		return strings.EqualFold(m.Attribute, name)
	})
}

// pendingValue returns the value the last queued Replace/Add would give a
// single-valued attribute, falling back to the cached value.
func (e *Entity) pendingValue(name string) string {
	for i := len(e.pending) - 1; i >= 0; i-- {
		m := e.pending[i]
		if !strings.EqualFold(m.Attribute, name) {
			continue
		}
		switch m.Op {
		case ModReplace, ModAdd:
			if len(m.Values) > 0 {
				return m.Values[0]
			}
		case ModRemove:
			return ""
		}
	}
	return e.Get(name)
}

// addRequest builds the create operation for the full attribute set.
func (e *Entity) addRequest() *ldap.AddRequest {
	req := ldap.NewAddRequest(e.path.String(), nil)
	keys := make([]string, 0, len(e.attrs))
	for k := range e.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		a := e.attrs[k]
		req.Attribute(a.name, slices.Clone(a.values))
	}
	return req
}

// containsValue compares DN-shaped values as paths and anything else
// case-insensitively.
func containsValue(values []string, v string) bool {
	return slices.ContainsFunc(values, func(existing string) bool {
		return sameValue(existing, v)
	})
}

func sameValue(a, b string) bool {
	if strings.EqualFold(a, b) {
		return true
	}
	if !strings.Contains(a, "=") || !strings.Contains(b, "=") {
		return false
	}
	pa, errA := ParsePath(a)
	pb, errB := ParsePath(b)
	return errA == nil && errB == nil && pa.Equal(pb)
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !containsValue(out, v) {
			out = append(out, v)
		}
	}
	return out
}
