/*
Package ldap keeps users and groups of an LDAP directory in sync with their
in-memory representation.

# Architecture Overview

  - Path and Layout: parsed distinguished names and the root context (root,
    people and groups containers) every entity is built against
  - SessionManager: opens, tracks and releases authenticated sessions
  - Directory: stateless service for lookup, insert, modification and delete
  - Entity: attribute snapshot, pending modification queue and field errors,
    embedded by User, Group and OU

# Entity Lifecycle

An entity is Unbound until its key is set, Transient once it has a path but
no remote entry, and Persisted after it was fetched or inserted. Setters
never fail: they record field errors and stage their change through a single
diff function. Transient entities amend their attributes; persisted entities
queue modifications and keep the cached attributes until the next fetch.

Insert and ApplyModifications refuse to contact the server while an entity
holds errors. ApplyModifications is not atomic: when one request fails the
earlier ones stay applied and the rest remain queued.

# Thread Safety

SessionManager is safe for concurrent use. Sessions and entities are not.

# Example Usage

	config := ldap.DefaultConfig()
	config.URL = "ldaps://ldap.example.com"
	config.BaseDN = "dc=example,dc=com"
	config.Username = "cn=admin,dc=example,dc=com"
	config.Password = "secret"

	manager, err := ldap.NewSessionManager(config)
	if err != nil {
		return err
	}
	session, err := manager.Open(ctx)
	if err != nil {
		return err
	}
	defer manager.Release(session)

	dir := ldap.NewDirectory(manager.Layout(), nil, nil)
	store := dir.Bind(session)

	user, err := ldap.NewUser(dir.Layout()).
		SetUID(ctx, store, "jdoe").
		SetCN("John").
		SetSN("Doe").
		SetMail(ctx, store, "jdoe@example.com").
		SetPassword(password, confirmation).
		Result()
	if err != nil {
		return err
	}
	if err := dir.Insert(ctx, session, user); err != nil {
		return err
	}
*/
package ldap
