// Package cookie defines the cookie medium a repository persists to and ships
// three implementations of it:
//
//   - Jar:        in-memory, concurrent map with expiry handling
//   - FileJar:    a Jar mirrored to a JSON file (atomic replace on every write)
//   - HTTPMedium: request cookies in, Set-Cookie headers out
//
// Attributes carry the usual cookie attributes (lifetime, path, domain, secure
// flag and same-site policy). The in-memory jars keep them for inspection but
// only the lifetime changes their behaviour.
package cookie
