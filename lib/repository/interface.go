package repository

import (
	"context"

	"github.com/ValentinKolb/pRepo/lib/path"
)

// --------------------------------------------------------------------------
// External store
// --------------------------------------------------------------------------

// FetchFunc returns the complete repository payload stored under handle. It
// returns an error for unreadable or unknown handles.
type FetchFunc func(ctx context.Context, handle Handle) (path.Values, error)

// WriteFunc persists data under handle. It must only return once the data is
// durable. The repository does not modify data after passing it.
type WriteFunc func(ctx context.Context, handle Handle, data path.Values) error

// IBackend is an external store holding repositories by handle. The
// implementations in lib/backend satisfy it.
type IBackend interface {
	// Fetch returns the repository stored under handle.
	Fetch(ctx context.Context, handle Handle) (path.Values, error)
	// Write stores data under handle.
	Write(ctx context.Context, handle Handle, data path.Values) error
}

// Hooks adapts a pair of functions to IBackend.
type Hooks struct {
	FetchFunc FetchFunc
	WriteFunc WriteFunc
}

func (h Hooks) Fetch(ctx context.Context, handle Handle) (path.Values, error) {
	if h.FetchFunc == nil {
		return nil, NewError(RetCConfigError, "no fetch hook set")
	}
	return h.FetchFunc(ctx, handle)
}

func (h Hooks) Write(ctx context.Context, handle Handle, data path.Values) error {
	if h.WriteFunc == nil {
		return NewError(RetCConfigError, "no write hook set")
	}
	return h.WriteFunc(ctx, handle, data)
}

// --------------------------------------------------------------------------
// Namespaces
// --------------------------------------------------------------------------

// Module is a consumer that keeps its values in its own namespace.
type Module interface {
	// ModuleName returns a name that is stable and unique among all modules
	// sharing a repository.
	ModuleName() string
}

// ModuleName is a Module with a fixed name.
type ModuleName string

func (m ModuleName) ModuleName() string {
	return string(m)
}
