package repository

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ValentinKolb/pRepo/lib/path"
)

type testModule struct{ name string }

func (m testModule) ModuleName() string { return m.name }

// TestNamespaceIsolation verifies that modules do not see each other's values
func TestNamespaceIsolation(t *testing.T) {
	r, _, rec := newTestRepo(t)

	settings, err := r.Module(testModule{"settings"})
	if err != nil {
		t.Fatalf("Module failed: %v", err)
	}
	other, _ := r.Namespace("other")

	if err := settings.SetValue("k", "mine"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	if got, _ := r.GetValue("__namespaces__.settings.k"); got != "mine" {
		t.Errorf("value not stored at the namespaced path: %v", r.GetValues())
	}
	if _, ok := other.GetValue("k"); ok {
		t.Error("value visible in another namespace")
	}
	if _, ok := r.GetValue("k"); ok {
		t.Error("value visible at the root")
	}

	updates := rec.ofType(Update)
	if len(updates) != 1 || updates[0].Path != "__namespaces__.settings.k" {
		t.Errorf("Update message does not carry the absolute path: %+v", updates)
	}
}

func TestNamespaceSurface(t *testing.T) {
	r, _, _ := newTestRepo(t)
	v, _ := r.Namespace("grid")

	if got, _ := v.SetDefaultValue("page", 1); got != 1 {
		t.Errorf("SetDefaultValue = %v", got)
	}
	_ = v.SetDefaultValues(path.Values{"page": 5, "size": 20})
	_ = v.SetValues(path.Values{"columns": []any{"a", "b"}})

	want := path.Values{"page": 1, "size": 20, "columns": []any{"a", "b"}}
	got := v.GetValues()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("GetValues = %v, want %v", got, want)
	}
	got["page"] = 99
	if p, _ := v.GetValue("page"); p != 1 {
		t.Error("GetValues aliases the namespace")
	}

	if !v.ContainsValue("columns", "b") || v.ContainsValue("columns", "z") {
		t.Error("ContainsValue does not resolve the namespace")
	}
	if v.Path("columns[1]") != "__namespaces__.grid.columns[1]" || v.Path("[0]") != "__namespaces__.grid[0]" {
		t.Errorf("unexpected paths %q %q", v.Path("columns[1]"), v.Path("[0]"))
	}

	_ = v.ClearValue("size")
	if _, ok := v.GetValue("size"); ok {
		t.Error("ClearValue did not remove the value")
	}
	_ = v.ClearValue("")
	if len(v.GetValues()) != 0 {
		t.Error("clearing the namespace root left values behind")
	}
}

func TestInvalidNamespace(t *testing.T) {
	r, _, _ := newTestRepo(t)

	for _, name := range []string{"", "a.b", "a[0]", "x]"} {
		if _, err := r.Namespace(name); !errors.Is(err, ErrConfig) {
			t.Errorf("Namespace(%q): expected ErrConfig, got %v", name, err)
		}
	}
	if _, err := r.Module(nil); !errors.Is(err, ErrConfig) {
		t.Errorf("Module(nil): expected ErrConfig, got %v", err)
	}
	if _, err := r.Module(ModuleName("")); !errors.Is(err, ErrConfig) {
		t.Errorf("unnamed module: expected ErrConfig, got %v", err)
	}
	if len(r.GetValues()) != 0 {
		t.Error("invalid namespace wrote data")
	}
}
