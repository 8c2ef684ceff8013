package repository

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/pRepo/lib/cookie"
	"github.com/ValentinKolb/pRepo/lib/path"
)

// TestCookieRoundTrip verifies that a second repository reads what the first one wrote
func TestCookieRoundTrip(t *testing.T) {
	ctx := context.Background()
	r, jar, rec := newTestRepo(t, WithDebounceWindow(time.Hour))

	if err := r.EnableCookies(ctx, true); err != nil {
		t.Fatalf("EnableCookies failed: %v", err)
	}
	_ = r.SetValue("theme", "dark")
	_ = r.SetValue("columns", []any{"name", "size"})
	if err := r.UpdatePersistentDataImmediate(ctx); err != nil {
		t.Fatalf("UpdatePersistentDataImmediate failed: %v", err)
	}
	if n := rec.count(DataWritten); n != 2 {
		t.Errorf("expected 2 DataWritten messages, got %d", n)
	}

	other := New(jar)
	if err := other.LoadPersistentData(ctx); err != nil {
		t.Fatalf("LoadPersistentData failed: %v", err)
	}
	if !reflect.DeepEqual(other.GetValues(), r.GetValues()) {
		t.Errorf("loaded %v, want %v", other.GetValues(), r.GetValues())
	}
	if !other.IsInitialized() {
		t.Error("repository not initialized after load")
	}
}

// TestLoadPublishesDataRead verifies the DataRead snapshot of a cookie load
func TestLoadPublishesDataRead(t *testing.T) {
	ctx := context.Background()
	r, _, rec := newTestRepo(t)
	_ = r.SetValue("lost", true)

	if r.IsInitialized() {
		t.Fatal("new repository reports initialized")
	}
	if err := r.LoadPersistentData(ctx); err != nil {
		t.Fatalf("LoadPersistentData failed: %v", err)
	}

	reads := rec.ofType(DataRead)
	if len(reads) != 1 || len(reads[0].Data) != 0 || !reads[0].Handle.IsZero() {
		t.Errorf("unexpected DataRead messages %+v", reads)
	}
	if _, ok := r.GetValue("lost"); ok {
		t.Error("load did not replace the in-memory data")
	}
}

// TestDebouncedBurst verifies that a burst of writes results in one DataWritten message
func TestDebouncedBurst(t *testing.T) {
	ctx := context.Background()
	r, jar, rec := newTestRepo(t)
	_ = r.EnableCookies(ctx, true)
	rec.reset()

	for i := 0; i < 20; i++ {
		_ = r.SetValue("counter", i)
	}

	waitFor(t, "debounced write", func() bool { return rec.count(DataWritten) == 1 })
	time.Sleep(5 * testWindow)
	if n := rec.count(DataWritten); n != 1 {
		t.Errorf("expected exactly 1 DataWritten message, got %d", n)
	}
	if got := decodeCookie(t, r, jar)["counter"]; got != 19.0 {
		t.Errorf("cookie holds counter = %v, want 19", got)
	}
}

// TestDebounceWaitsForInitialization verifies that no partial state is written before the first load
func TestDebounceWaitsForInitialization(t *testing.T) {
	ctx := context.Background()
	r, jar, rec := newTestRepo(t)

	r.mu.Lock()
	r.cookiesEnabled = true
	r.mu.Unlock()

	_ = r.SetValue("early", 1)
	time.Sleep(5 * testWindow)
	if n := rec.count(DataWritten); n != 0 {
		t.Fatalf("wrote %d times before initialization", n)
	}
	if _, ok := jar.Get(r.CookieConfig().Name); ok {
		t.Fatal("cookie written before initialization")
	}

	if err := r.LoadPersistentData(ctx); err != nil {
		t.Fatalf("LoadPersistentData failed: %v", err)
	}
	waitFor(t, "write after initialization", func() bool { return rec.count(DataWritten) == 1 })
}

func TestMalformedCookie(t *testing.T) {
	ctx := context.Background()
	r, jar, rec := newTestRepo(t)
	_ = jar.Set(r.CookieConfig().Name, "definitely not a payload", cookie.Attributes{})

	if err := r.LoadPersistentData(ctx); err != nil {
		t.Fatalf("malformed cookie surfaced as error: %v", err)
	}
	if len(r.GetValues()) != 0 {
		t.Errorf("expected empty data, got %v", r.GetValues())
	}
	if rec.count(DataRead) != 1 {
		t.Error("expected a DataRead message")
	}
}

// TestOversizedCookie verifies that a payload over the ceiling is skipped and the
// previous cookie stays readable
func TestOversizedCookie(t *testing.T) {
	ctx := context.Background()
	r, jar, rec := newTestRepo(t)
	_ = r.EnableCookies(ctx, true)
	_ = r.SetValue("small", "ok")
	_ = r.UpdatePersistentDataImmediate(ctx)
	written := rec.count(DataWritten)

	// random hex does not compress below the ceiling
	rng := rand.New(rand.NewSource(1))
	blob := make([]byte, 10000)
	for i := range blob {
		blob[i] = "0123456789abcdef"[rng.Intn(16)]
	}
	_ = r.SetValue("blob", string(blob))

	if err := r.UpdatePersistentDataImmediate(ctx); err != nil {
		t.Fatalf("oversized payload surfaced as error: %v", err)
	}
	if n := rec.count(DataWritten); n != written {
		t.Errorf("oversized write published DataWritten")
	}

	other := New(jar)
	_ = other.LoadPersistentData(ctx)
	if !reflect.DeepEqual(other.GetValues(), path.Values{"small": "ok"}) {
		t.Errorf("previous cookie not readable, loaded %v", other.GetValues())
	}
	if v, _ := r.GetValue("blob"); v != string(blob) {
		t.Error("in-memory state lost the oversized value")
	}
}

// TestDisabledPersistence verifies that nothing is persisted without consent
func TestDisabledPersistence(t *testing.T) {
	ctx := context.Background()
	r, jar, rec := newTestRepo(t)
	name := r.CookieConfig().Name
	_ = jar.Set(name, "stale", cookie.Attributes{})

	_ = r.SetValue("a", 1)
	if err := r.UpdatePersistentDataImmediate(ctx); err != nil {
		t.Fatalf("UpdatePersistentDataImmediate failed: %v", err)
	}
	if _, ok := jar.Get(name); ok {
		t.Error("cookie not deleted while persistence is disabled")
	}
	if rec.count(DataWritten) != 0 {
		t.Error("DataWritten published while persistence is disabled")
	}

	_ = r.EnableCookies(ctx, true)
	if _, ok := jar.Get(name); !ok {
		t.Fatal("EnableCookies(true) did not write the cookie")
	}
	if !r.IsInitialized() {
		t.Error("EnableCookies(true) did not mark the repository initialized")
	}
	_ = r.EnableCookies(ctx, false)
	if _, ok := jar.Get(name); ok {
		t.Error("EnableCookies(false) did not delete the cookie")
	}
}

func TestMissingHooks(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newTestRepo(t)
	enabled := true
	h := StringHandle("h1")

	err := r.SetOptions(ctx, Options{CookiesEnabled: &enabled, DatabaseHandle: &h})
	if !errors.Is(err, ErrConfig) {
		t.Errorf("load without fetch hook: expected ErrConfig, got %v", err)
	}
	if err := r.UpdatePersistentDataImmediate(ctx); !errors.Is(err, ErrConfig) {
		t.Errorf("write without write hook: expected ErrConfig, got %v", err)
	}
}

// TestHandleSwitch verifies one fetch and one DataRead per switch
func TestHandleSwitch(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	h := StringHandle("user-1")
	b.records[h] = path.Values{"theme": "dark"}

	r, jar, rec := newTestRepo(t, WithBackend(b), WithDebounceWindow(time.Hour))
	_ = r.EnableCookies(ctx, true)
	rec.reset()

	if err := r.SetDatabaseHandle(ctx, h); err != nil {
		t.Fatalf("SetDatabaseHandle failed: %v", err)
	}
	if fetches, _ := b.calls(); fetches != 1 {
		t.Errorf("expected 1 fetch, got %d", fetches)
	}
	reads := rec.ofType(DataRead)
	if len(reads) != 1 || reads[0].Handle != h || !reflect.DeepEqual(reads[0].Data, path.Values{"theme": "dark"}) {
		t.Errorf("unexpected DataRead messages %+v", reads)
	}
	if got, _ := r.GetValue("theme"); got != "dark" {
		t.Errorf("theme = %v, want dark", got)
	}

	pointer := decodeCookie(t, r, jar)
	if pointer["useExternalStore"] != true || pointer["handle"] != "user-1" {
		t.Errorf("cookie does not hold the pointer payload: %v", pointer)
	}

	// same handle again is a no-op
	_ = r.SetDatabaseHandle(ctx, h)
	if fetches, _ := b.calls(); fetches != 1 {
		t.Errorf("switching to the active handle fetched again")
	}

	// mutations are written through the hook
	_ = r.SetValue("theme", "light")
	if err := r.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if got := b.record(h)["theme"]; got != "light" {
		t.Errorf("backend holds theme = %v, want light", got)
	}
	if written := rec.ofType(DataWritten); len(written) != 1 || written[0].Handle != h {
		t.Errorf("unexpected DataWritten messages %+v", written)
	}
}

// TestClearHandleResets verifies that switching to no handle resets and writes instead of fetching
func TestClearHandleResets(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	h := IntHandle(7)
	b.records[h] = path.Values{"remote": true}

	r, jar, rec := newTestRepo(t, WithBackend(b), WithDebounceWindow(time.Hour))
	_ = r.EnableCookies(ctx, true)
	r.SetDefaults(path.Values{"theme": "light"})
	_ = r.SetDatabaseHandle(ctx, h)
	fetches, _ := b.calls()
	rec.reset()

	if err := r.ClearDatabaseHandle(ctx); err != nil {
		t.Fatalf("ClearDatabaseHandle failed: %v", err)
	}
	if f, _ := b.calls(); f != fetches {
		t.Error("clearing the handle fetched")
	}
	if !r.DatabaseHandle().IsZero() {
		t.Errorf("handle = %v, want none", r.DatabaseHandle())
	}

	want := path.Values{"theme": "light"}
	if !reflect.DeepEqual(r.GetValues(), want) {
		t.Errorf("GetValues = %v, want defaults", r.GetValues())
	}
	if rec.count(Reset) != 1 || rec.count(DataWritten) != 1 {
		t.Errorf("expected Reset and DataWritten, got %+v", rec.messages())
	}
	if !reflect.DeepEqual(decodeCookie(t, r, jar), want) {
		t.Error("cookie does not hold the reset data")
	}
}

func TestFetchFailureClearsHandle(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	b.fetchErr = errors.New("backend down")

	r, _, rec := newTestRepo(t, WithBackend(b))
	_ = r.SetValue("a", 1)

	err := r.SetDatabaseHandle(ctx, StringHandle("h"))
	if !errors.Is(err, ErrExternal) || !errors.Is(err, b.fetchErr) {
		t.Fatalf("expected ErrExternal wrapping the hook error, got %v", err)
	}
	if !r.DatabaseHandle().IsZero() {
		t.Error("handle not cleared after failed fetch")
	}
	if len(r.GetValues()) != 0 {
		t.Errorf("data not emptied after failed fetch: %v", r.GetValues())
	}
	if rec.count(DataRead) != 0 {
		t.Error("DataRead published for a failed fetch")
	}
}

// TestConcurrentLoadsShareFetch verifies that loads in flight join one fetch
func TestConcurrentLoadsShareFetch(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	h := StringHandle("shared")
	b.records[h] = path.Values{"k": "v"}
	b.fetchGate = make(chan struct{})
	b.fetchStarted = make(chan struct{}, 8)

	r, _, rec := newTestRepo(t, WithBackend(b))
	r.mu.Lock()
	r.handle = h
	r.mu.Unlock()

	const loaders = 5
	errs := make(chan error, loaders)
	for i := 0; i < loaders; i++ {
		go func() { errs <- r.LoadPersistentData(ctx) }()
	}

	select {
	case <-b.fetchStarted:
	case <-time.After(time.Second):
		t.Fatal("fetch did not start")
	}
	time.Sleep(50 * time.Millisecond)
	close(b.fetchGate)

	for i := 0; i < loaders; i++ {
		if err := <-errs; err != nil {
			t.Errorf("load %d failed: %v", i, err)
		}
	}
	if fetches, _ := b.calls(); fetches != 1 {
		t.Errorf("expected 1 fetch, got %d", fetches)
	}
	if n := rec.count(DataRead); n != 1 {
		t.Errorf("expected 1 DataRead message, got %d", n)
	}
}

// TestStaleFetchDiscarded verifies that a fetch finishing after a handle switch
// does not replace the data of the new handle
func TestStaleFetchDiscarded(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	old, active := StringHandle("old"), StringHandle("active")
	b.records[old] = path.Values{"from": "old"}
	b.fetchGate = make(chan struct{})
	b.fetchStarted = make(chan struct{}, 1)

	r, _, rec := newTestRepo(t, WithBackend(b))
	r.mu.Lock()
	r.handle = old
	r.mu.Unlock()

	errs := make(chan error, 1)
	go func() { errs <- r.LoadPersistentData(ctx) }()

	select {
	case <-b.fetchStarted:
	case <-time.After(time.Second):
		t.Fatal("fetch did not start")
	}
	r.mu.Lock()
	r.handle = active
	r.mu.Unlock()
	close(b.fetchGate)

	if err := <-errs; err != nil {
		t.Fatalf("LoadPersistentData failed: %v", err)
	}
	if _, ok := r.GetValue("from"); ok {
		t.Error("stale fetch result was applied")
	}
	if n := rec.count(DataRead); n != 0 {
		t.Errorf("expected no DataRead message, got %d", n)
	}
	if r.DatabaseHandle() != active {
		t.Errorf("handle = %v, want %v", r.DatabaseHandle(), active)
	}
}

// TestPointerCookie verifies that a pointer payload in the cookie selects the handle
func TestPointerCookie(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		handle  Handle
	}{
		{"current", pointerPayload{UseExternalStore: true, Handle: StringHandle("abc")}, StringHandle("abc")},
		{"legacy", map[string]any{"useDbData": true, "databaseHandle": 42}, IntHandle(42)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			b := newFakeBackend()
			b.records[tt.handle] = path.Values{"from": tt.name}

			r, jar, _ := newTestRepo(t, WithBackend(b))
			text, err := r.codec.Encode(tt.payload)
			if err != nil {
				t.Fatal(err)
			}
			_ = jar.Set(r.CookieConfig().Name, text, cookie.Attributes{})

			if err := r.LoadPersistentData(ctx); err != nil {
				t.Fatalf("LoadPersistentData failed: %v", err)
			}
			if r.DatabaseHandle() != tt.handle {
				t.Errorf("handle = %v, want %v", r.DatabaseHandle(), tt.handle)
			}
			if got, _ := r.GetValue("from"); got != tt.name {
				t.Errorf("data not fetched from the backend: %v", r.GetValues())
			}
		})
	}
}

// TestStaleWriteOrdering verifies that a slow write can not overwrite a newer one
func TestStaleWriteOrdering(t *testing.T) {
	ctx := context.Background()
	b := newFakeBackend()
	h := StringHandle("slow")
	b.records[h] = path.Values{}

	r, _, _ := newTestRepo(t, WithBackend(b), WithDebounceWindow(time.Hour))
	_ = r.SetDatabaseHandle(ctx, h)
	_ = r.EnableCookies(ctx, true)
	_, baseline := b.calls()

	b.mu.Lock()
	b.writeGate = make(chan struct{})
	b.writeStarted = make(chan struct{}, 8)
	b.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(1)
	_ = r.SetValue("v", 1)
	go func() {
		defer wg.Done()
		if err := r.UpdatePersistentDataImmediate(ctx); err != nil {
			t.Errorf("first write failed: %v", err)
		}
	}()
	<-b.writeStarted

	_ = r.SetValue("v", 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.UpdatePersistentDataImmediate(ctx); err != nil {
				t.Errorf("write failed: %v", err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(b.writeGate)
	wg.Wait()

	_, writes := b.calls()
	if writes-baseline != 2 {
		t.Errorf("expected 2 hook calls, got %d", writes-baseline)
	}
	b.mu.Lock()
	last := b.writes[len(b.writes)-1]
	b.mu.Unlock()
	if last["v"] != 2 {
		t.Errorf("last write carried v = %v, want 2", last["v"])
	}
	if got := b.record(h)["v"]; got != 2 {
		t.Errorf("backend holds v = %v, want 2", got)
	}

	// nothing changed since, no further hook call
	_ = r.UpdatePersistentDataImmediate(ctx)
	if _, w := b.calls(); w != writes {
		t.Errorf("unchanged data written again")
	}
}

func TestSetOptionsMergesCookieConfig(t *testing.T) {
	ctx := context.Background()
	r, _, _ := newTestRepo(t)

	name := "custom"
	secure := true
	if err := r.SetOptions(ctx, Options{CookieConfig: &CookieConfigPatch{Name: &name, Secure: &secure}}); err != nil {
		t.Fatalf("SetOptions failed: %v", err)
	}

	got := r.CookieConfig()
	if got.Name != "custom" || !got.Secure || got.SameSite != cookie.SameSiteLax {
		t.Errorf("cookie config not merged: %+v", got)
	}
	if !r.IsInitialized() {
		t.Error("SetOptions did not load")
	}

	if err := r.SetOptions(ctx, Options{Defaults: path.Values{"d": 1}}); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(r.Defaults(), path.Values{"d": 1}) {
		t.Errorf("defaults not set: %v", r.Defaults())
	}
}

// TestCloseFlushesPendingWrite verifies that Close does not lose a debounced write
func TestCloseFlushesPendingWrite(t *testing.T) {
	ctx := context.Background()
	r, jar, rec := newTestRepo(t, WithDebounceWindow(time.Hour))
	_ = r.EnableCookies(ctx, true)
	rec.reset()

	_ = r.SetValue("k", "v")
	if err := r.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if rec.count(DataWritten) != 1 {
		t.Error("Close did not write the pending change")
	}
	if decodeCookie(t, r, jar)["k"] != "v" {
		t.Error("cookie misses the pending change")
	}

	_ = r.SetValue("after", "close")
	if r.debounce.Pending() {
		t.Error("write scheduled after Close")
	}
}
