package cookie

import (
	"net/http"
	"sync"
	"time"
)

// HTTPMedium adapts a single request/response exchange to IMedium. Reads see the
// request cookies plus everything set during the exchange, writes are emitted as
// Set-Cookie headers on the response.
type HTTPMedium struct {
	w http.ResponseWriter
	r *http.Request

	mu      sync.Mutex
	written map[string]*string // nil value marks a deleted cookie
}

// NewHTTPMedium creates a medium for one request. Cookies must be written before
// the response header is sent.
func NewHTTPMedium(w http.ResponseWriter, r *http.Request) *HTTPMedium {
	return &HTTPMedium{w: w, r: r, written: make(map[string]*string)}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see cookie.IMedium)
// --------------------------------------------------------------------------

func (h *HTTPMedium) Get(name string) (string, bool) {
	h.mu.Lock()
	v, ok := h.written[name]
	h.mu.Unlock()
	if ok {
		if v == nil {
			return "", false
		}
		return *v, true
	}

	c, err := h.r.Cookie(name)
	if err != nil {
		return "", false
	}
	return c.Value, true
}

func (h *HTTPMedium) Set(name, value string, attrs Attributes) error {
	c := httpCookie(name, value, attrs)
	if attrs.Expires > 0 {
		c.Expires = time.Now().Add(attrs.Expires)
		c.MaxAge = int(attrs.Expires / time.Second)
	}
	if err := c.Valid(); err != nil {
		return err
	}

	h.mu.Lock()
	h.written[name] = &value
	h.mu.Unlock()

	http.SetCookie(h.w, c)
	return nil
}

func (h *HTTPMedium) Delete(name string, attrs Attributes) error {
	c := httpCookie(name, "", attrs)
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)

	h.mu.Lock()
	h.written[name] = nil
	h.mu.Unlock()

	http.SetCookie(h.w, c)
	return nil
}

func httpCookie(name, value string, attrs Attributes) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     attrs.Path,
		Domain:   attrs.Domain,
		Secure:   attrs.Secure,
		SameSite: attrs.SameSite.HTTP(),
	}
}
