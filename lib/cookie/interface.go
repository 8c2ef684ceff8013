package cookie

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// IMedium is the storage primitive a repository persists its payload to.
// Implementations must be safe for concurrent use.
type IMedium interface {
	// Get returns the value stored under name. The boolean is false if no
	// (unexpired) cookie with that name exists.
	Get(name string) (value string, ok bool)
	// Set stores value under name using the given attributes.
	Set(name, value string, attrs Attributes) error
	// Delete removes the cookie with the given name. Deleting a missing cookie is not an error.
	Delete(name string, attrs Attributes) error
}

// --------------------------------------------------------------------------
// Attributes
// --------------------------------------------------------------------------

// SameSite is the same-site policy of a cookie.
type SameSite string

const (
	SameSiteDefault SameSite = ""
	SameSiteLax     SameSite = "Lax"
	SameSiteStrict  SameSite = "Strict"
	SameSiteNone    SameSite = "None"
)

// ParseSameSite converts a case-insensitive policy name to a SameSite value.
func ParseSameSite(s string) (SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return SameSiteDefault, nil
	case "lax":
		return SameSiteLax, nil
	case "strict":
		return SameSiteStrict, nil
	case "none":
		return SameSiteNone, nil
	default:
		return SameSiteDefault, fmt.Errorf("cookie: invalid same-site policy %q (must be one of lax, strict, none)", s)
	}
}

// UnmarshalText accepts the policy names case-insensitively.
func (s *SameSite) UnmarshalText(text []byte) error {
	parsed, err := ParseSameSite(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// HTTP converts the policy to its net/http representation.
func (s SameSite) HTTP() http.SameSite {
	switch s {
	case SameSiteLax:
		return http.SameSiteLaxMode
	case SameSiteStrict:
		return http.SameSiteStrictMode
	case SameSiteNone:
		return http.SameSiteNoneMode
	default:
		return http.SameSiteDefaultMode
	}
}

// Attributes are the cookie attributes passed along with Set and Delete.
type Attributes struct {
	// Expires is the lifetime of the cookie, zero means a session cookie.
	Expires  time.Duration
	Path     string
	Domain   string
	Secure   bool
	SameSite SameSite
}
