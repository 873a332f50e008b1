package ldap

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-ldap/ldap/v3"
)

const (
	minUIDLength      = 4
	maxUIDLength      = 64
	maxValueLength    = 254
	minPasswordLength = 8
	maxPasswordLength = 255
)

// userObjectClasses are written on every new user entry.
var userObjectClasses = []string{"top", "person", "organizationalPerson", "inetOrgPerson"}

// User is a person entry under the people container, keyed by uid.
type User struct {
	Entity
	layout *Layout
}

// NewUser returns an unbound user for layout. SetUID binds it to a path.
func NewUser(layout *Layout) *User {
	u := &User{Entity: newEntity(), layout: layout}
	u.stage(ModReplace, "objectClass", userObjectClasses...)
	return u
}

// UserFromEntry builds a persisted user from a fetched entry.
func UserFromEntry(layout *Layout, entry *ldap.Entry) (*User, error) {
	e, err := entityFromEntry(entry)
	if err != nil {
		return nil, err
	}
	return &User{Entity: e, layout: layout}, nil
}

// Result returns the user together with its accumulated errors.
func (u *User) Result() (*User, error) {
	return u, u.validationError()
}

// SetUID validates uid, probes the store for an existing entry at the
// derived path and binds the user to it. The uid of a persisted user is
// immutable.
func (u *User) SetUID(ctx context.Context, store Store, uid string) *User {
	if u.state == StatePersisted {
		if uid != u.UID() {
			u.AddError("uid", "Username can't be changed")
		}
		return u
	}

	if uid == "" {
		u.AddError("uid", "Username can't be empty")
		return u
	}
	if n := utf8.RuneCountInString(uid); n < minUIDLength {
		u.AddError("uid", fmt.Sprintf("Username must have at least %d characters", minUIDLength))
	} else if n > maxUIDLength {
		u.AddError("uid", fmt.Sprintf("Username can't have more than %d characters", maxUIDLength))
	}

	if u.layout == nil {
		u.fail(newKindError("set_uid", KindValidation, "", "user has no layout", nil))
		return u
	}
	path, err := u.layout.UserPath(uid)
	if err != nil {
		u.AddError("uid", "Username is not valid")
		return u
	}

	found, err := store.Exists(ctx, path)
	if err != nil {
		u.fail(WrapError("probe_uid", err))
		return u
	}
	if found {
		u.addError("uid", KindDuplicate, "Username already exists")
	}

	u.bind(path)
	u.stage(ModReplace, "uid", uid)
	u.stage(ModReplace, "ou", u.layout.People().LeafValue())
	return u
}

// SetCN sets the common name, usually the first name.
func (u *User) SetCN(cn string) *User {
	u.setRequired("cn", "cn", "First name", cn)
	return u
}

// SetSN sets the surname.
func (u *User) SetSN(sn string) *User {
	u.setRequired("sn", "sn", "Last name", sn)
	return u
}

// SetDescription sets a free-form description.
func (u *User) SetDescription(description string) *User {
	u.setRequired("description", "description", "Description", description)
	return u
}

// ClearDescription removes the description.
func (u *User) ClearDescription() *User {
	u.set("description", "")
	return u
}

// SetMail sets the email address. Addresses must be unique among the entries
// of the people container; the user's own entry does not count.
func (u *User) SetMail(ctx context.Context, store Store, mail string) *User {
	if !u.setRequired("mail", "mail", "Email", mail) {
		return u
	}
	if u.layout == nil {
		return u
	}

	entries, err := store.Search(ctx, &SearchRequest{
		Base:       u.layout.People(),
		Scope:      ScopeSingleLevel,
		Filter:     fmt.Sprintf("(mail=%s)", ldap.EscapeFilter(mail)),
		Attributes: []string{"mail"},
	})
	if err != nil {
		u.fail(WrapError("probe_mail", err))
		return u
	}
	for _, entry := range entries {
		if u.path != nil && sameValue(entry.DN, u.path.String()) {
			continue
		}
		u.addError("mail", KindDuplicate, "This email address has already been registered")
		break
	}
	return u
}

// SetPassword sets the write-only password after checking it against its
// confirmation.
func (u *User) SetPassword(password, confirmation string) *User {
	if password == "" {
		u.AddError("password", "The password can't be empty")
		return u
	}

	if password != confirmation {
		u.AddError("password", "The password and confirmation should be identical")
	}
	if n := utf8.RuneCountInString(password); n < minPasswordLength {
		u.AddError("password", fmt.Sprintf("The password must have at least %d characters", minPasswordLength))
	} else if n > maxPasswordLength {
		u.AddError("password", fmt.Sprintf("The password can't have more than %d characters", maxPasswordLength))
	}

	u.stage(ModReplace, "userPassword", password)
	return u
}

// setRequired validates a mandatory single-valued attribute and stages it.
// It reports whether the value passed validation.
func (u *User) setRequired(field, attr, label, value string) bool {
	if value == "" {
		u.AddError(field, label+" can't be empty")
		return false
	}

	valid := true
	if utf8.RuneCountInString(value) > maxValueLength {
		u.AddError(field, fmt.Sprintf("%s can't have more than %d characters", label, maxValueLength))
		valid = false
	}
	u.set(attr, value)
	return valid
}

// UID returns the user name.
func (u *User) UID() string {
	if uid := u.Get("uid"); uid != "" {
		return uid
	}
	if u.path != nil {
		return u.path.LeafValue()
	}
	return ""
}

func (u *User) CN() string { return u.Get("cn") }

func (u *User) SN() string { return u.Get("sn") }

func (u *User) Mail() string { return u.Get("mail") }

func (u *User) Description() string { return u.Get("description") }

// Name returns the full display name.
func (u *User) Name() string {
	return strings.TrimSpace(u.CN() + " " + u.SN())
}
