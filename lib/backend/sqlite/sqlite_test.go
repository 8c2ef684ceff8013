package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ValentinKolb/pRepo/lib/backend"
	"github.com/ValentinKolb/pRepo/lib/path"
	"github.com/ValentinKolb/pRepo/lib/repository"
)

func openTestBackend(t *testing.T, createMissing bool) *Backend {
	t.Helper()
	cfg := DefaultConfig(filepath.Join(t.TempDir(), "nested", "prepo.db"))
	cfg.CreateMissing = createMissing
	b, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBackend(t *testing.T) {
	ctx := context.Background()

	t.Run("UnknownHandle", func(t *testing.T) {
		b := openTestBackend(t, false)
		if _, err := b.Fetch(ctx, repository.StringHandle("missing")); !errors.Is(err, backend.ErrUnknownHandle) {
			t.Errorf("expected ErrUnknownHandle, got %v", err)
		}
	})

	t.Run("CreateMissing", func(t *testing.T) {
		b := openTestBackend(t, true)
		data, err := b.Fetch(ctx, repository.IntHandle(3))
		if err != nil || data == nil || len(data) != 0 {
			t.Errorf("Fetch = %v, %v; want empty mapping", data, err)
		}
	})

	t.Run("Upsert", func(t *testing.T) {
		b := openTestBackend(t, false)
		h := repository.IntHandle(42)

		for _, v := range []float64{1, 2} {
			if err := b.Write(ctx, h, path.Values{"v": v, "list": []any{"a"}}); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
		}
		got, err := b.Fetch(ctx, h)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got, path.Values{"v": 2.0, "list": []any{"a"}}) {
			t.Errorf("Fetch = %v", got)
		}
	})

	t.Run("HandleKinds", func(t *testing.T) {
		b := openTestBackend(t, false)
		_ = b.Write(ctx, repository.IntHandle(42), path.Values{"kind": "number"})
		_ = b.Write(ctx, repository.StringHandle("42"), path.Values{"kind": "string"})

		got, _ := b.Fetch(ctx, repository.StringHandle("42"))
		if got["kind"] != "string" {
			t.Errorf("string handle resolved to %v", got)
		}
		hs, err := b.Handles(ctx)
		if err != nil || len(hs) != 2 || hs[0] != repository.IntHandle(42) || hs[1] != repository.StringHandle("42") {
			t.Errorf("Handles = %v, %v", hs, err)
		}

		if err := b.Delete(ctx, repository.IntHandle(42)); err != nil {
			t.Fatal(err)
		}
		if _, err := b.Fetch(ctx, repository.IntHandle(42)); !errors.Is(err, backend.ErrUnknownHandle) {
			t.Errorf("deleted handle still present: %v", err)
		}
	})

	t.Run("Reopen", func(t *testing.T) {
		cfg := DefaultConfig(filepath.Join(t.TempDir(), "prepo.db"))
		b, err := Open(cfg)
		if err != nil {
			t.Fatal(err)
		}
		_ = b.Write(ctx, repository.StringHandle("u"), path.Values{"a": "b"})
		if err := b.Close(); err != nil {
			t.Fatal(err)
		}

		b, err = Open(cfg)
		if err != nil {
			t.Fatal(err)
		}
		defer b.Close()
		if err := b.HealthCheck(ctx); err != nil {
			t.Errorf("HealthCheck failed: %v", err)
		}
		got, err := b.Fetch(ctx, repository.StringHandle("u"))
		if err != nil || got["a"] != "b" {
			t.Errorf("Fetch after reopen = %v, %v", got, err)
		}
	})

	t.Run("EmptyPath", func(t *testing.T) {
		if _, err := Open(Config{}); err == nil {
			t.Error("expected an error for an empty path")
		}
	})
}
