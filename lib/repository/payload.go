package repository

import (
	"github.com/ValentinKolb/pRepo/lib/path"
)

// pointerPayload is stored in the cookie instead of the data while a handle is active.
type pointerPayload struct {
	UseExternalStore bool   `json:"useExternalStore"`
	Handle           Handle `json:"handle"`
}

// pointerFrom reports whether a decoded cookie is a pointer payload and returns
// its handle. Payloads written by older clients use useDbData/databaseHandle.
func pointerFrom(decoded path.Values) (Handle, bool) {
	for _, keys := range [][2]string{
		{"useExternalStore", "handle"},
		{"useDbData", "databaseHandle"},
	} {
		if flag, _ := decoded[keys[0]].(bool); !flag {
			continue
		}
		h, err := handleFromValue(decoded[keys[1]])
		if err != nil || h.IsZero() {
			continue
		}
		return h, true
	}
	return Handle{}, false
}

// cookiePayloadLocked returns the value to encode into the cookie. r.mu must be held.
func (r *Repository) cookiePayloadLocked() any {
	if !r.handle.IsZero() {
		return pointerPayload{UseExternalStore: true, Handle: r.handle}
	}
	return r.data.Root()
}

// writeCookieLocked encodes and stores the cookie payload. An oversized payload
// is skipped and reported with written == false and a nil error. r.mu must be held.
func (r *Repository) writeCookieLocked() (written bool, err error) {
	text, err := r.codec.Encode(r.cookiePayloadLocked())
	if err != nil {
		return false, wrapError(RetCEncodingError, "could not encode cookie payload", err)
	}

	metricCookiePayloadBytes.Update(float64(len(text)))
	if len(text) >= MaxCookieSize {
		metricCookieOversize.Inc()
		log.Warningf("encoded repository size (%d bytes) exceeds the maximal cookie length (%d bytes), consider storing the data in an external store", len(text), MaxCookieSize)
		return false, nil
	}

	if err := r.medium.Set(r.cookie.Name, text, r.cookie.attributes()); err != nil {
		return false, wrapError(RetCExternalError, "could not write cookie", err)
	}
	return true, nil
}

// readCookieLocked loads the cookie into data or adopts the handle of a pointer
// payload. Malformed cookies are ignored. r.mu must be held.
func (r *Repository) readCookieLocked() {
	text, ok := r.medium.Get(r.cookie.Name)
	if !ok || text == "" {
		return
	}

	var decoded path.Values
	if err := r.codec.Decode(text, &decoded); err != nil {
		log.Debugf("ignoring malformed cookie %q: %v", r.cookie.Name, err)
		return
	}

	if h, ok := pointerFrom(decoded); ok {
		log.Debugf("cookie %q points to handle %s", r.cookie.Name, h)
		r.handle = h
		return
	}
	r.data.Replace(decoded)
}

// deleteCookieLocked removes the cookie. r.mu must be held.
func (r *Repository) deleteCookieLocked() error {
	if err := r.medium.Delete(r.cookie.Name, r.cookie.attributes()); err != nil {
		return wrapError(RetCExternalError, "could not delete cookie", err)
	}
	return nil
}
