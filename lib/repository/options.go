package repository

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/pRepo/lib/codec"
	"github.com/ValentinKolb/pRepo/lib/cookie"
	"github.com/ValentinKolb/pRepo/lib/path"
	"gopkg.in/yaml.v3"
)

// --------------------------------------------------------------------------
// Cookie configuration
// --------------------------------------------------------------------------

// DefaultCookieName is the name of the cookie unless configured otherwise.
const DefaultCookieName = "persistent-repository"

// CookieConfig holds the name and attributes of the repository cookie.
type CookieConfig struct {
	Name     string
	Expires  time.Duration // zero means a session cookie
	Path     string
	Domain   string
	Secure   bool
	SameSite cookie.SameSite
}

// DefaultCookieConfig returns the configuration of a new repository.
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		Name:     DefaultCookieName,
		SameSite: cookie.SameSiteLax,
	}
}

// attributes converts the config to the attributes passed to the medium
func (c CookieConfig) attributes() cookie.Attributes {
	return cookie.Attributes{
		Expires:  c.Expires,
		Path:     c.Path,
		Domain:   c.Domain,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	}
}

// CookieConfigPatch is a partial CookieConfig. Nil fields are left unchanged.
type CookieConfigPatch struct {
	Name     *string          `yaml:"name" json:"name"`
	Expires  *Lifetime        `yaml:"expires" json:"expires"`
	Path     *string          `yaml:"path" json:"path"`
	Domain   *string          `yaml:"domain" json:"domain"`
	Secure   *bool            `yaml:"secure" json:"secure"`
	SameSite *cookie.SameSite `yaml:"sameSite" json:"sameSite"`
}

// apply merges p into c
func (p *CookieConfigPatch) apply(c *CookieConfig) {
	if p == nil {
		return
	}
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Expires != nil {
		c.Expires = time.Duration(*p.Expires)
	}
	if p.Path != nil {
		c.Path = *p.Path
	}
	if p.Domain != nil {
		c.Domain = *p.Domain
	}
	if p.Secure != nil {
		c.Secure = *p.Secure
	}
	if p.SameSite != nil {
		c.SameSite = *p.SameSite
	}
}

// Lifetime is a cookie lifetime. In YAML and JSON documents a number is read as
// days, a string as a Go duration ("720h").
type Lifetime time.Duration

const day = 24 * time.Hour

func parseLifetime(v any) (Lifetime, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case int:
		return Lifetime(time.Duration(t) * day), nil
	case float64:
		return Lifetime(time.Duration(t * float64(day))), nil
	case string:
		d, err := time.ParseDuration(t)
		if err != nil {
			return 0, fmt.Errorf("invalid cookie lifetime %q: %w", t, err)
		}
		return Lifetime(d), nil
	default:
		return 0, fmt.Errorf("invalid cookie lifetime of type %T", v)
	}
}

func (l *Lifetime) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := parseLifetime(v)
	*l = parsed
	return err
}

func (l *Lifetime) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	parsed, err := parseLifetime(v)
	*l = parsed
	return err
}

// --------------------------------------------------------------------------
// Runtime options
// --------------------------------------------------------------------------

// Options is a partial configuration applied with SetOptions. Nil fields are
// left unchanged, CookieConfig is merged field by field.
type Options struct {
	CookiesEnabled *bool              `yaml:"cookiesEnabled" json:"cookiesEnabled"`
	CookieConfig   *CookieConfigPatch `yaml:"cookieConfig" json:"cookieConfig"`
	DatabaseHandle *Handle            `yaml:"databaseHandle" json:"databaseHandle"`
	Defaults       path.Values        `yaml:"defaults" json:"defaults"`
}

// ParseOptions decodes options from a YAML (or JSON) document.
func ParseOptions(data []byte) (Options, error) {
	var o Options
	if err := yaml.Unmarshal(data, &o); err != nil {
		return Options{}, wrapError(RetCConfigError, "invalid options document", err)
	}
	return o, nil
}

// String returns a formatted representation of the options. Unset fields are omitted.
func (o Options) String() string {
	var fields []string
	add := func(name string, value any) {
		fields = append(fields, fmt.Sprintf("%s=%v", name, value))
	}

	if o.CookiesEnabled != nil {
		add("cookiesEnabled", *o.CookiesEnabled)
	}
	if p := o.CookieConfig; p != nil {
		if p.Name != nil {
			add("cookie.name", *p.Name)
		}
		if p.Expires != nil {
			add("cookie.expires", time.Duration(*p.Expires))
		}
		if p.Path != nil {
			add("cookie.path", *p.Path)
		}
		if p.Domain != nil {
			add("cookie.domain", *p.Domain)
		}
		if p.Secure != nil {
			add("cookie.secure", *p.Secure)
		}
		if p.SameSite != nil {
			add("cookie.sameSite", *p.SameSite)
		}
	}
	if o.DatabaseHandle != nil {
		add("databaseHandle", o.DatabaseHandle.String())
	}
	if o.Defaults != nil {
		add("defaults", fmt.Sprintf("%d keys", len(o.Defaults)))
	}
	return "{" + strings.Join(fields, " ") + "}"
}

// --------------------------------------------------------------------------
// Constructor options
// --------------------------------------------------------------------------

// DefaultDebounceWindow is the quiescence window of the debounced write.
const DefaultDebounceWindow = 100 * time.Millisecond

// DefaultWriteTimeout bounds debounced writes, which have no caller context.
const DefaultWriteTimeout = 30 * time.Second

// MaxCookieSize is the ceiling for an encoded cookie payload. Payloads of this
// size or larger are not written.
const MaxCookieSize = 4000

type config struct {
	medium         cookie.IMedium
	codec          codec.ICodec
	backend        IBackend
	cookie         CookieConfig
	debounceWindow time.Duration
	writeTimeout   time.Duration
	subscribers    []func(UpdateMessage)
}

// Option configures a Repository in New.
type Option func(*config)

// WithCodec sets the codec used for the cookie payload (default deflate).
func WithCodec(c codec.ICodec) Option {
	return func(cfg *config) { cfg.codec = c }
}

// WithBackend sets the external store used when a handle is active.
func WithBackend(b IBackend) Option {
	return func(cfg *config) { cfg.backend = b }
}

// WithDebounceWindow overrides the quiescence window of debounced writes.
func WithDebounceWindow(d time.Duration) Option {
	return func(cfg *config) { cfg.debounceWindow = d }
}

// WithWriteTimeout bounds the duration of a debounced write. Values <= 0 keep
// DefaultWriteTimeout.
func WithWriteTimeout(d time.Duration) Option {
	return func(cfg *config) {
		if d > 0 {
			cfg.writeTimeout = d
		}
	}
}

// WithSubscriber registers fn before the Startup message is published.
func WithSubscriber(fn func(UpdateMessage)) Option {
	return func(cfg *config) { cfg.subscribers = append(cfg.subscribers, fn) }
}

// WithCookieConfig replaces the initial cookie configuration.
func WithCookieConfig(c CookieConfig) Option {
	return func(cfg *config) { cfg.cookie = c }
}
