package repository

import (
	"strings"

	"github.com/ValentinKolb/pRepo/lib/path"
)

// NamespaceSegment is the reserved top-level key holding all namespaces.
const NamespaceSegment = "__namespaces__"

// View addresses the namespace of one module. All paths passed to a View are
// relative to the namespace root "__namespaces__.<name>".
//
// Two views with the same name share their data. Callers are responsible for
// unique names.
type View struct {
	repo *Repository
	name string
	root string
}

// Namespace returns a view on the namespace name. The name must not be empty
// and must not contain '.', '[' or ']'.
func (r *Repository) Namespace(name string) (*View, error) {
	if name == "" {
		return nil, NewError(RetCConfigError, "namespace name must not be empty")
	}
	if strings.ContainsAny(name, ".[]") {
		return nil, NewError(RetCConfigError, "namespace name must not contain '.', '[' or ']': "+name)
	}
	return &View{repo: r, name: name, root: path.Join(NamespaceSegment, name)}, nil
}

// Module returns the view for m, see Namespace.
func (r *Repository) Module(m Module) (*View, error) {
	if m == nil {
		return nil, NewError(RetCConfigError, "module must not be nil")
	}
	return r.Namespace(m.ModuleName())
}

// Name returns the namespace name.
func (v *View) Name() string {
	return v.name
}

// Repository returns the repository the view belongs to.
func (v *View) Repository() *Repository {
	return v.repo
}

// Path returns the absolute path of the relative path p.
func (v *View) Path(p string) string {
	if p == "" {
		return v.root
	}
	if strings.HasPrefix(p, "[") {
		return v.root + p
	}
	return v.root + "." + p
}

// GetValue, see Repository.GetValue.
func (v *View) GetValue(p string) (any, bool) {
	return v.repo.GetValue(v.Path(p))
}

// GetValues returns a deep copy of the namespace. An absent namespace yields an empty mapping.
func (v *View) GetValues() path.Values {
	v.repo.mu.Lock()
	defer v.repo.mu.Unlock()

	current, ok := v.repo.data.Get(v.root)
	if !ok {
		return path.Values{}
	}
	if m, ok := current.(map[string]any); ok {
		return path.CloneValues(m)
	}
	return path.Values{}
}

// SetValue, see Repository.SetValue.
func (v *View) SetValue(p string, value any) error {
	return v.repo.SetValue(v.Path(p), value)
}

// SetValues sets the entries of values inside the namespace in lexicographic key order.
func (v *View) SetValues(values path.Values) error {
	return v.repo.SetEntries(v.entries(path.SortedEntries(values)))
}

// ClearValue, see Repository.ClearValue. Clearing the empty path removes the namespace.
func (v *View) ClearValue(p string) error {
	return v.repo.ClearValue(v.Path(p))
}

// SetDefaultValue, see Repository.SetDefaultValue.
func (v *View) SetDefaultValue(p string, value any) (any, error) {
	return v.repo.SetDefaultValue(v.Path(p), value)
}

// SetDefaultValues applies SetDefaultValue to every entry in lexicographic key order.
func (v *View) SetDefaultValues(values path.Values) error {
	return v.repo.SetDefaultEntries(v.entries(path.SortedEntries(values)))
}

// ContainsValue, see Repository.ContainsValue.
func (v *View) ContainsValue(p string, scalar any) bool {
	return v.repo.ContainsValue(v.Path(p), scalar)
}

func (v *View) entries(relative []path.Entry) []path.Entry {
	out := make([]path.Entry, len(relative))
	for i, e := range relative {
		out[i] = path.Entry{Path: v.Path(e.Path), Value: e.Value}
	}
	return out
}
