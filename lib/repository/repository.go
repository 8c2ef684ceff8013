package repository

import (
	"sync"
	"time"

	"github.com/ValentinKolb/pRepo/lib/bus"
	"github.com/ValentinKolb/pRepo/lib/codec"
	"github.com/ValentinKolb/pRepo/lib/cookie"
	"github.com/ValentinKolb/pRepo/lib/path"
	"github.com/lni/dragonboat/v4/logger"
	"golang.org/x/sync/singleflight"
)

var log = logger.GetLogger("repository")

// Repository is a path-addressable key/value store mirrored to a cookie or,
// while a handle is active, to an external store.
//
// Thread-safety: All methods are safe for concurrent use. Messages are
// delivered after the repository lock was released, so subscribers may call
// back into the repository.
type Repository struct {
	mu             sync.Mutex
	data           *path.Store
	defaults       path.Values
	cookiesEnabled bool
	cookie         CookieConfig
	handle         Handle
	initialized    bool
	fetch          FetchFunc
	write          WriteFunc

	medium       cookie.IMedium
	codec        codec.ICodec
	updates      *bus.Bus[UpdateMessage]
	debounce     *debouncer
	writeTimeout time.Duration

	// fetches joins concurrent loads of the same handle
	fetches singleflight.Group

	// writeSlot serializes external writes, see writeExternal
	writeSlot     chan struct{}
	revision      uint64 // incremented on every change of data
	written       uint64 // newest revision known to be durable under writtenHandle
	writtenHandle Handle
}

// New creates a repository persisting to medium. A nil medium selects an
// in-memory cookie jar. A new repository has cookies disabled and is not
// initialized until the first load.
func New(medium cookie.IMedium, opts ...Option) *Repository {
	cfg := config{
		medium:         medium,
		cookie:         DefaultCookieConfig(),
		debounceWindow: DefaultDebounceWindow,
		writeTimeout:   DefaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.medium == nil {
		cfg.medium = cookie.NewJar()
	}
	if cfg.codec == nil {
		cfg.codec, _ = codec.NewDeflateCodec()
	}

	r := &Repository{
		data:         path.NewStore(nil),
		defaults:     path.Values{},
		cookie:       cfg.cookie,
		medium:       cfg.medium,
		codec:        cfg.codec,
		updates:      bus.New[UpdateMessage](),
		writeTimeout: cfg.writeTimeout,
		writeSlot:    make(chan struct{}, 1),
	}
	r.debounce = newDebouncer(cfg.debounceWindow, r.debouncedWrite)
	if cfg.backend != nil {
		r.fetch, r.write = cfg.backend.Fetch, cfg.backend.Write
	}
	for _, fn := range cfg.subscribers {
		r.updates.Subscribe(fn)
	}

	r.updates.Publish(UpdateMessage{Type: Startup})
	return r
}

// --------------------------------------------------------------------------
// Reads
// --------------------------------------------------------------------------

// GetValue returns the value at p. Composite values are returned by reference:
// modifying them modifies the repository without notification or persistence.
// Use GetValues or path.Clone for a private copy.
func (r *Repository) GetValue(p string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data.Get(p)
}

// GetValues returns a deep copy of the whole repository.
func (r *Repository) GetValues() path.Values {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data.Snapshot()
}

// ContainsValue reports whether the value at p is a sequence containing scalar.
// Numbers compare by value regardless of their Go type.
func (r *Repository) ContainsValue(p string, scalar any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data.ContainsInArray(p, scalar)
}

// --------------------------------------------------------------------------
// Writes
// --------------------------------------------------------------------------

// SetValue stores a deep copy of value at p, publishes an Update message and
// schedules a debounced write.
func (r *Repository) SetValue(p string, value any) error {
	if err := validatePath(p); err != nil {
		return err
	}
	r.mu.Lock()
	err := r.setLocked(p, value)
	r.mu.Unlock()
	if err != nil {
		return err
	}

	r.updates.Flush()
	r.scheduleUpdate()
	return nil
}

// SetValues sets every entry of values. Keys are paths and are applied in
// lexicographic order; use SetEntries to control the order.
func (r *Repository) SetValues(values path.Values) error {
	return r.SetEntries(path.SortedEntries(values))
}

// SetEntries sets the entries in order, publishing one Update message per entry.
// No entry is applied if any path is invalid.
func (r *Repository) SetEntries(entries []path.Entry) error {
	for _, e := range entries {
		if err := validatePath(e.Path); err != nil {
			return err
		}
	}
	for _, e := range entries {
		if err := r.SetValue(e.Path, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// ClearValue removes the value at p. If something was removed, an Update
// message with Removed set is published and a debounced write is scheduled.
func (r *Repository) ClearValue(p string) error {
	if err := validatePath(p); err != nil {
		return err
	}

	r.mu.Lock()
	removed := r.data.Unset(p)
	if removed {
		r.revision++
		r.updates.Enqueue(UpdateMessage{Type: Update, Handle: r.handle, Path: p, Removed: true})
	}
	r.mu.Unlock()

	if removed {
		r.updates.Flush()
		r.scheduleUpdate()
	}
	return nil
}

// setLocked writes value and enqueues the Update message. r.mu must be held.
func (r *Repository) setLocked(p string, value any) error {
	value = path.Clone(value)
	if err := r.data.Set(p, value); err != nil {
		return wrapError(RetCInvalidPath, "cannot set "+p, err)
	}
	r.revision++
	r.updates.Enqueue(UpdateMessage{Type: Update, Handle: r.handle, Path: p, Value: path.Clone(value)})
	return nil
}

// --------------------------------------------------------------------------
// State
// --------------------------------------------------------------------------

// Updates returns the bus on which all repository messages are published.
func (r *Repository) Updates() *bus.Bus[UpdateMessage] {
	return r.updates
}

// Subscribe registers fn for all messages published from now on.
func (r *Repository) Subscribe(fn func(UpdateMessage)) (cancel func()) {
	return r.updates.Subscribe(fn)
}

// IsInitialized reports whether the repository completed a load (or a reset).
func (r *Repository) IsInitialized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initialized
}

// DatabaseHandle returns the active handle, the zero handle in cookie mode.
func (r *Repository) DatabaseHandle() Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handle
}

// CookiesEnabled reports whether persistence is enabled.
func (r *Repository) CookiesEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cookiesEnabled
}

// CookieConfig returns the active cookie configuration.
func (r *Repository) CookieConfig() CookieConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cookie
}

// CodecName returns the name of the cookie payload codec.
func (r *Repository) CodecName() string {
	return r.codec.Name()
}

// SetFetchPersistentDataHook sets the function used to load data for a handle.
func (r *Repository) SetFetchPersistentDataHook(fn FetchFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetch = fn
}

// SetWritePersistentDataHook sets the function used to write data for a handle.
func (r *Repository) SetWritePersistentDataHook(fn WriteFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.write = fn
}

// SetBackend sets both hooks from b. A nil backend removes them.
func (r *Repository) SetBackend(b IBackend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b == nil {
		r.fetch, r.write = nil, nil
		return
	}
	r.fetch, r.write = b.Fetch, b.Write
}

func validatePath(p string) error {
	if _, err := path.Split(p); err != nil {
		return wrapError(RetCInvalidPath, "invalid path "+p, err)
	}
	return nil
}
