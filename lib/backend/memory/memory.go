// Package memory implements a process local external store.
package memory

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/ValentinKolb/pRepo/lib/backend"
	"github.com/ValentinKolb/pRepo/lib/path"
	"github.com/ValentinKolb/pRepo/lib/repository"
	"github.com/puzpuzpuz/xsync/v3"
)

// Backend keeps repositories as JSON documents in a concurrent map, so
// callers never share values with the store.
type Backend struct {
	records       *xsync.MapOf[repository.Handle, []byte]
	createMissing bool
	fetches       atomic.Int64
	writes        atomic.Int64
}

// Option configures a Backend.
type Option func(*Backend)

// WithCreateMissing makes Fetch return an empty repository for unknown handles
// instead of backend.ErrUnknownHandle.
func WithCreateMissing(create bool) Option {
	return func(b *Backend) { b.createMissing = create }
}

// New creates an empty backend.
func New(opts ...Option) *Backend {
	b := &Backend{records: xsync.NewMapOf[repository.Handle, []byte]()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// --------------------------------------------------------------------------
// Interface Methods (docu see repository.IBackend)
// --------------------------------------------------------------------------

func (b *Backend) Fetch(ctx context.Context, handle repository.Handle) (path.Values, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.fetches.Add(1)

	raw, ok := b.records.Load(handle)
	if !ok {
		if b.createMissing {
			return path.Values{}, nil
		}
		return nil, backend.UnknownHandle(handle)
	}
	return backend.Unmarshal(raw)
}

func (b *Backend) Write(ctx context.Context, handle repository.Handle, data path.Values) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := backend.Marshal(data)
	if err != nil {
		return err
	}
	b.writes.Add(1)
	b.records.Store(handle, raw)
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// Seed stores data under handle without counting it as a write.
func (b *Backend) Seed(handle repository.Handle, data path.Values) error {
	raw, err := backend.Marshal(data)
	if err != nil {
		return err
	}
	b.records.Store(handle, raw)
	return nil
}

// Delete removes the record of handle.
func (b *Backend) Delete(handle repository.Handle) {
	b.records.Delete(handle)
}

// Handles returns all stored handles ordered by their key.
func (b *Backend) Handles() []repository.Handle {
	var out []repository.Handle
	b.records.Range(func(h repository.Handle, _ []byte) bool {
		out = append(out, h)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Stats returns the number of Fetch and Write calls.
func (b *Backend) Stats() (fetches, writes int64) {
	return b.fetches.Load(), b.writes.Load()
}
