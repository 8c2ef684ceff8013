package repository

import (
	"context"

	"github.com/ValentinKolb/pRepo/lib/path"
)

// --------------------------------------------------------------------------
// Load
// --------------------------------------------------------------------------

// LoadPersistentData replaces the data with the persisted state.
//
// Without a handle the cookie is read. A malformed cookie is ignored and the
// repository starts empty. If the cookie holds a pointer payload its handle
// becomes active. With an active handle the data is fetched with the fetch
// hook; concurrent loads of the same handle share one fetch. If the fetch
// fails, the data is emptied, the handle cleared and the error returned.
//
// A DataRead message is published after every successful load.
func (r *Repository) LoadPersistentData(ctx context.Context) error {
	r.mu.Lock()
	r.data.Replace(nil)
	r.revision++
	r.initialized = false

	if r.handle.IsZero() {
		r.readCookieLocked()
	}

	handle := r.handle
	if handle.IsZero() {
		r.initialized = true
		r.updates.Enqueue(UpdateMessage{Type: DataRead, Data: r.data.Snapshot()})
		r.mu.Unlock()
		r.updates.Flush()
		return nil
	}

	if r.fetch == nil {
		r.mu.Unlock()
		return NewError(RetCConfigError, "the fetch hook must be set when activating a database handle")
	}
	r.mu.Unlock()

	// the first caller's context governs the shared fetch
	_, err, shared := r.fetches.Do(handle.Key(), func() (any, error) {
		return nil, r.fetchHandle(ctx, handle)
	})
	if shared {
		log.Debugf("joined running fetch for handle %s", handle)
	}
	return err
}

// fetchHandle runs the fetch hook and applies its result if handle is still active.
func (r *Repository) fetchHandle(ctx context.Context, handle Handle) error {
	r.mu.Lock()
	fetch := r.fetch
	r.mu.Unlock()
	if fetch == nil {
		return NewError(RetCConfigError, "the fetch hook must be set when activating a database handle")
	}

	metricFetches.Inc()
	fetched, err := fetch(ctx, handle)

	r.mu.Lock()
	if active := r.handle; active != handle {
		r.mu.Unlock()
		log.Debugf("discarding fetch result for handle %s, active handle is now %s", handle, active)
		if err != nil {
			return wrapError(RetCExternalError, "fetch for handle "+handle.String()+" failed", err)
		}
		return nil
	}

	if err != nil {
		metricFetchErrors.Inc()
		r.data.Replace(nil)
		r.revision++
		r.handle = Handle{}
		r.mu.Unlock()
		log.Warningf("fetch for handle %s failed, handle cleared: %v", handle, err)
		return wrapError(RetCExternalError, "fetch for handle "+handle.String()+" failed", err)
	}

	r.data.Replace(path.CloneValues(fetched))
	r.revision++
	r.initialized = true
	r.updates.Enqueue(UpdateMessage{Type: DataRead, Handle: handle, Data: r.data.Snapshot()})
	r.mu.Unlock()

	r.updates.Flush()
	return nil
}

// --------------------------------------------------------------------------
// Write
// --------------------------------------------------------------------------

// UpdatePersistentDataImmediate cancels a pending debounced write and persists
// the data now.
//
// With persistence disabled the cookie is deleted. In cookie mode the data is
// written to the cookie. With an active handle the cookie receives a pointer
// payload and the data is written with the write hook. A DataWritten message
// is published after every successful write. A payload too large for the
// cookie is skipped with a warning, it is not an error.
func (r *Repository) UpdatePersistentDataImmediate(ctx context.Context) error {
	r.debounce.Cancel()

	r.mu.Lock()
	if !r.cookiesEnabled {
		err := r.deleteCookieLocked()
		r.mu.Unlock()
		return err
	}

	handle := r.handle
	written, cookieErr := r.writeCookieLocked()

	if handle.IsZero() {
		if cookieErr != nil {
			r.mu.Unlock()
			metricWriteErrors.Inc()
			return cookieErr
		}
		if written {
			metricWrites.Inc()
			r.updates.Enqueue(UpdateMessage{Type: DataWritten, Data: r.data.Snapshot()})
		}
		r.mu.Unlock()
		r.updates.Flush()
		return nil
	}

	if cookieErr != nil {
		log.Warningf("could not store pointer cookie for handle %s: %v", handle, cookieErr)
	}
	if r.write == nil {
		r.mu.Unlock()
		return NewError(RetCConfigError, "the write hook must be set when activating a database handle")
	}
	target := r.revision
	r.mu.Unlock()

	return r.writeExternal(ctx, handle, target)
}

// writeExternal writes the data of handle with the write hook. Writes are
// serialized. Each write sends the newest data at the time it starts, so a
// caller whose revision was already written by someone else returns without
// calling the hook again, and an older snapshot never lands after a newer one.
func (r *Repository) writeExternal(ctx context.Context, handle Handle, target uint64) error {
	select {
	case r.writeSlot <- struct{}{}:
	case <-ctx.Done():
		return wrapError(RetCExternalError, "waiting for running write", ctx.Err())
	}
	defer func() { <-r.writeSlot }()

	r.mu.Lock()
	if r.handle != handle {
		r.mu.Unlock()
		log.Debugf("skipping write for handle %s, active handle changed", handle)
		return nil
	}
	if r.writtenHandle == handle && r.written >= target {
		r.mu.Unlock()
		return nil
	}
	write := r.write
	if write == nil {
		r.mu.Unlock()
		return NewError(RetCConfigError, "the write hook must be set when activating a database handle")
	}
	revision := r.revision
	snapshot := r.data.Snapshot()
	r.mu.Unlock()

	if err := write(ctx, handle, snapshot); err != nil {
		metricWriteErrors.Inc()
		return wrapError(RetCExternalError, "write for handle "+handle.String()+" failed", err)
	}
	metricWrites.Inc()

	r.mu.Lock()
	if r.writtenHandle != handle || revision > r.written {
		r.written = revision
		r.writtenHandle = handle
	}
	r.updates.Enqueue(UpdateMessage{Type: DataWritten, Handle: handle, Data: path.CloneValues(snapshot)})
	r.mu.Unlock()

	r.updates.Flush()
	return nil
}

// scheduleUpdate (re)starts the debounce window.
func (r *Repository) scheduleUpdate() {
	r.debounce.Trigger()
}

// debouncedWrite runs when the debounce window elapsed. Before the first load
// completed it re-arms itself instead of writing partial state.
func (r *Repository) debouncedWrite() {
	if !r.IsInitialized() {
		metricDebounceRearm.Inc()
		r.debounce.Trigger()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
	defer cancel()
	if err := r.UpdatePersistentDataImmediate(ctx); err != nil {
		log.Errorf("debounced write failed: %v", err)
	}
}

// --------------------------------------------------------------------------
// Reset and handle switching
// --------------------------------------------------------------------------

// ResetValues replaces the data with a deep copy of the recorded defaults,
// publishes a Reset message and writes the result immediately.
func (r *Repository) ResetValues(ctx context.Context) error {
	r.mu.Lock()
	r.data.Replace(path.CloneValues(r.defaults))
	r.revision++
	r.initialized = true
	r.updates.Enqueue(UpdateMessage{Type: Reset, Handle: r.handle, Data: r.data.Snapshot()})
	r.mu.Unlock()

	r.updates.Flush()
	return r.UpdatePersistentDataImmediate(ctx)
}

// SetDatabaseHandle switches to handle. Switching to the active handle does
// nothing. A non-zero handle is loaded with the fetch hook and the pointer
// payload is written to the cookie. The zero handle resets the data to the
// defaults and writes them.
func (r *Repository) SetDatabaseHandle(ctx context.Context, handle Handle) error {
	r.mu.Lock()
	if r.handle == handle {
		r.mu.Unlock()
		return nil
	}
	r.handle = handle
	r.mu.Unlock()

	if handle.IsZero() {
		return r.ResetValues(ctx)
	}

	if err := r.LoadPersistentData(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.cookiesEnabled || r.handle != handle {
		return nil
	}
	_, err := r.writeCookieLocked()
	return err
}

// ClearDatabaseHandle switches back to cookie mode, see SetDatabaseHandle.
func (r *Repository) ClearDatabaseHandle(ctx context.Context) error {
	return r.SetDatabaseHandle(ctx, Handle{})
}

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// EnableCookies enables or disables persistence. Enabling marks the repository
// initialized and writes the data immediately. Disabling deletes the cookie.
func (r *Repository) EnableCookies(ctx context.Context, enable bool) error {
	r.mu.Lock()
	r.cookiesEnabled = enable
	if enable {
		r.initialized = true
	}
	r.mu.Unlock()

	return r.UpdatePersistentDataImmediate(ctx)
}

// SetOptions merges o into the configuration and reloads the data.
func (r *Repository) SetOptions(ctx context.Context, o Options) error {
	r.mu.Lock()
	if o.CookiesEnabled != nil {
		r.cookiesEnabled = *o.CookiesEnabled
	}
	o.CookieConfig.apply(&r.cookie)
	if o.DatabaseHandle != nil {
		r.handle = *o.DatabaseHandle
	}
	if o.Defaults != nil {
		r.defaults = path.CloneValues(o.Defaults)
	}
	r.mu.Unlock()

	log.Debugf("options updated: %s", o)
	return r.LoadPersistentData(ctx)
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Flush runs a pending debounced write now. It does nothing if no write is
// pending or the first load has not completed yet.
func (r *Repository) Flush(ctx context.Context) error {
	if !r.debounce.Pending() || !r.IsInitialized() {
		return nil
	}
	return r.UpdatePersistentDataImmediate(ctx)
}

// Close flushes a pending write and stops the debounce timer. Mutations after
// Close are applied in memory but no longer scheduled for writing.
func (r *Repository) Close(ctx context.Context) error {
	pending := r.debounce.Stop()
	if !pending || !r.IsInitialized() {
		return nil
	}
	return r.UpdatePersistentDataImmediate(ctx)
}
