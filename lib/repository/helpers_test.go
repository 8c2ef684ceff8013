package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/pRepo/lib/cookie"
	"github.com/ValentinKolb/pRepo/lib/path"
)

// testWindow is the debounce window used by most tests
const testWindow = 10 * time.Millisecond

var errUnknownHandle = errors.New("unknown handle")

// --------------------------------------------------------------------------
// Message recorder
// --------------------------------------------------------------------------

type recorder struct {
	mu   sync.Mutex
	msgs []UpdateMessage
}

func (rec *recorder) add(m UpdateMessage) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.msgs = append(rec.msgs, m)
}

func (rec *recorder) messages() []UpdateMessage {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]UpdateMessage(nil), rec.msgs...)
}

func (rec *recorder) count(t UpdateType) int {
	n := 0
	for _, m := range rec.messages() {
		if m.Type == t {
			n++
		}
	}
	return n
}

func (rec *recorder) ofType(t UpdateType) []UpdateMessage {
	var out []UpdateMessage
	for _, m := range rec.messages() {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

func (rec *recorder) reset() {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.msgs = nil
}

// --------------------------------------------------------------------------
// Fake external store
// --------------------------------------------------------------------------

type fakeBackend struct {
	mu         sync.Mutex
	records    map[Handle]path.Values
	fetchCalls int
	writeCalls int
	writes     []path.Values
	fetchErr   error

	// if set, the calls block until the gate is closed
	fetchGate    chan struct{}
	fetchStarted chan struct{}
	writeGate    chan struct{}
	writeStarted chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{records: make(map[Handle]path.Values)}
}

func (b *fakeBackend) Fetch(ctx context.Context, handle Handle) (path.Values, error) {
	b.mu.Lock()
	b.fetchCalls++
	gate, started, fetchErr := b.fetchGate, b.fetchStarted, b.fetchErr
	b.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fetchErr != nil {
		return nil, fetchErr
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	record, ok := b.records[handle]
	if !ok {
		return nil, errUnknownHandle
	}
	return path.CloneValues(record), nil
}

func (b *fakeBackend) Write(ctx context.Context, handle Handle, data path.Values) error {
	b.mu.Lock()
	b.writeCalls++
	b.writes = append(b.writes, path.CloneValues(data))
	gate, started := b.writeGate, b.writeStarted
	b.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.records[handle] = path.CloneValues(data)
	return nil
}

func (b *fakeBackend) calls() (fetches, writes int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fetchCalls, b.writeCalls
}

func (b *fakeBackend) record(h Handle) path.Values {
	b.mu.Lock()
	defer b.mu.Unlock()
	return path.CloneValues(b.records[h])
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// newTestRepo creates a repository on a fresh jar with a short debounce window
func newTestRepo(t *testing.T, opts ...Option) (*Repository, *cookie.Jar, *recorder) {
	t.Helper()
	jar := cookie.NewJar()
	rec := &recorder{}
	opts = append([]Option{WithDebounceWindow(testWindow), WithSubscriber(rec.add)}, opts...)
	r := New(jar, opts...)
	t.Cleanup(func() { _ = r.Close(context.Background()) })
	return r, jar, rec
}

// waitFor polls cond until it is true or the deadline is reached
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("timeout waiting for %s", what)
		case <-time.After(time.Millisecond):
		}
	}
}

// decodeCookie returns the decoded cookie payload of r
func decodeCookie(t *testing.T, r *Repository, jar *cookie.Jar) path.Values {
	t.Helper()
	text, ok := jar.Get(r.CookieConfig().Name)
	if !ok {
		t.Fatal("no cookie stored")
	}
	var out path.Values
	if err := r.codec.Decode(text, &out); err != nil {
		t.Fatalf("could not decode cookie: %v", err)
	}
	return out
}
