package repository

import (
	"github.com/ValentinKolb/pRepo/lib/path"
)

// SetDefaultValue stores value at p unless a value (possibly nil) already
// exists there, and returns the value now stored at p. Only an actual write
// publishes an Update message and schedules a debounced write.
func (r *Repository) SetDefaultValue(p string, value any) (any, error) {
	if err := validatePath(p); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if current, ok := r.data.Get(p); ok {
		r.mu.Unlock()
		return current, nil
	}
	if err := r.setLocked(p, value); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	current, _ := r.data.Get(p)
	r.mu.Unlock()

	r.updates.Flush()
	r.scheduleUpdate()
	return current, nil
}

// SetDefaultValues applies SetDefaultValue to every entry in lexicographic key order.
func (r *Repository) SetDefaultValues(values path.Values) error {
	return r.SetDefaultEntries(path.SortedEntries(values))
}

// SetDefaultEntries applies SetDefaultValue to every entry in order. Existence
// is checked before each entry, so within one call the first entry for a path wins.
func (r *Repository) SetDefaultEntries(entries []path.Entry) error {
	for _, e := range entries {
		if err := validatePath(e.Path); err != nil {
			return err
		}
	}
	for _, e := range entries {
		if _, err := r.SetDefaultValue(e.Path, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// RecordDefaults records defaults. With persist set, a deep copy of defaults
// becomes the target of ResetValues. Otherwise the values are only seeded into
// the current data with SetDefaultValues and the reset target is unchanged.
func (r *Repository) RecordDefaults(defaults path.Values, persist bool) error {
	if !persist {
		return r.SetDefaultValues(defaults)
	}
	r.mu.Lock()
	r.defaults = path.CloneValues(defaults)
	r.mu.Unlock()
	return nil
}

// SetDefaults replaces the reset target, see RecordDefaults.
func (r *Repository) SetDefaults(defaults path.Values) {
	_ = r.RecordDefaults(defaults, true)
}

// Defaults returns a deep copy of the reset target.
func (r *Repository) Defaults() path.Values {
	r.mu.Lock()
	defer r.mu.Unlock()
	return path.CloneValues(r.defaults)
}
