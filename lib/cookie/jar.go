package cookie

import (
	"time"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var log = logger.GetLogger("cookie")

// Entry is a stored cookie.
type Entry struct {
	Value     string     `json:"value"`
	ExpiresAt time.Time  `json:"expiresAt,omitempty"`
	Attrs     Attributes `json:"attrs"`
}

// expired reports whether the entry is expired at the given time.
// Entries without an expiry never expire.
func (e Entry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// Jar is an in-memory IMedium. The zero value is not usable, use NewJar.
type Jar struct {
	entries *xsync.MapOf[string, Entry]
	now     func() time.Time
}

// NewJar creates an empty in-memory cookie jar.
func NewJar() *Jar {
	return &Jar{
		entries: xsync.NewMapOf[string, Entry](),
		now:     time.Now,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see cookie.IMedium)
// --------------------------------------------------------------------------

func (j *Jar) Get(name string) (string, bool) {
	e, ok := j.entries.Load(name)
	if !ok {
		return "", false
	}
	if e.expired(j.now()) {
		// only remove the entry if it was not replaced in the meantime
		j.entries.Compute(name, func(old Entry, loaded bool) (Entry, bool) {
			return old, !loaded || old.expired(j.now())
		})
		return "", false
	}
	return e.Value, true
}

func (j *Jar) Set(name, value string, attrs Attributes) error {
	e := Entry{Value: value, Attrs: attrs}
	if attrs.Expires > 0 {
		e.ExpiresAt = j.now().Add(attrs.Expires)
	}
	j.entries.Store(name, e)
	return nil
}

func (j *Jar) Delete(name string, _ Attributes) error {
	j.entries.Delete(name)
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// Len returns the number of stored cookies, including expired ones that were not read yet.
func (j *Jar) Len() int {
	return j.entries.Size()
}

// snapshot returns all unexpired entries
func (j *Jar) snapshot() map[string]Entry {
	now := j.now()
	out := make(map[string]Entry, j.entries.Size())
	j.entries.Range(func(name string, e Entry) bool {
		if !e.expired(now) {
			out[name] = e
		}
		return true
	})
	return out
}

// restore replaces the jar contents, dropping expired entries
func (j *Jar) restore(entries map[string]Entry) {
	now := j.now()
	j.entries.Clear()
	for name, e := range entries {
		if e.expired(now) {
			log.Debugf("dropping expired cookie %q", name)
			continue
		}
		j.entries.Store(name, e)
	}
}
