// Package cmd implements the command-line interface of pRepo. It opens a
// repository backed by a cookie jar file and an optional external store and
// offers commands to read and modify it.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for values (get, set, del, contains, dump, default, reset)
//   - handle: Commands for the external store handle (get, set, clear, new)
//   - serve: Starts an HTTP store other repositories can use
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See prepo -help for a list of all commands.
package cmd
