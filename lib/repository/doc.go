/*
Package repository implements a persistent key/value repository for client
applications.

The repository holds a nested mapping of JSON-like values addressed by paths
("settings.columns[0]"). Its contents are mirrored either to a cookie or, while
a database handle is active, to an external store reached through a fetch and
a write hook (IBackend).

# Lifecycle

	repo := repository.New(cookie.NewJar(),
		repository.WithBackend(sqliteBackend),
		repository.WithSubscriber(func(m repository.UpdateMessage) { ... }),
	)
	repo.SetDefaults(path.Values{"theme": "light"})
	_ = repo.EnableCookies(ctx, true)    // consent given, persistence enabled
	_ = repo.LoadPersistentData(ctx)     // read cookie or fetch handle
	_ = repo.SetValue("theme", "dark")   // Update message, debounced write
	_ = repo.Close(ctx)                  // flush the pending write

A new repository has persistence disabled. Until EnableCookies(ctx, true) is
called (or cookiesEnabled is set through SetOptions), nothing is written and
every write attempt deletes the cookie.

# Persistence

Mutations schedule a write after a quiescence window (100ms by default), so a
burst of changes results in one write. Before the first load completed the
write is postponed. UpdatePersistentDataImmediate writes at once.

In cookie mode the data is encoded with the configured codec (JSON, compressed,
base64). Payloads of MaxCookieSize bytes or more are not stored; a warning is
logged and the previously stored cookie stays readable. With an active handle
the cookie only stores a pointer payload {"useExternalStore": true, "handle": h}
and a later load follows it.

External writes are serialized and always send the newest data, so a slow write
can not overwrite a newer one.

# Messages

Every change is published on the Updates bus: Startup, DataRead, Update, Reset
and DataWritten. Messages are delivered synchronously in publish order after
the repository lock was released; a subscriber may call back into the
repository.

# Namespaces

Independent modules use their own namespace below "__namespaces__":

	view, err := repo.Module(repository.ModuleName("settings"))
	_ = view.SetValue("page", 2) // stored at __namespaces__.settings.page
*/
package repository
