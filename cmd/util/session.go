package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ValentinKolb/pRepo/lib/backend/httpbackend"
	"github.com/ValentinKolb/pRepo/lib/backend/sqlite"
	"github.com/ValentinKolb/pRepo/lib/codec"
	"github.com/ValentinKolb/pRepo/lib/cookie"
	"github.com/ValentinKolb/pRepo/lib/repository"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
)

var Logger = logger.GetLogger("cli")

// Session is an opened repository together with the resources it uses
type Session struct {
	Config  Config
	Repo    *repository.Repository
	Backend repository.IBackend // nil without external store

	closers []func() error
}

// GetCodec returns the configured codec
func GetCodec(c Config) (codec.ICodec, error) {
	return codec.ByName(c.Codec)
}

// GetMedium opens the cookie jar file
func GetMedium(c Config) (cookie.IMedium, error) {
	return cookie.OpenFileJar(c.CookieFile)
}

// GetBackend opens the configured external store. It returns nil if none is configured.
func GetBackend(c Config) (repository.IBackend, func() error, error) {
	switch {
	case c.SQLite != "" && len(c.HTTPEndpoints) > 0:
		return nil, nil, errors.New("--sqlite and --http-endpoints are mutually exclusive")
	case c.SQLite != "":
		cfg := sqlite.DefaultConfig(c.SQLite)
		cfg.CreateMissing = c.CreateMissing
		b, err := sqlite.Open(cfg)
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	case len(c.HTTPEndpoints) > 0:
		b, err := httpbackend.NewClient(httpbackend.ClientConfig{
			Endpoints:     c.HTTPEndpoints,
			RetryCount:    c.HTTPRetries,
			Timeout:       c.Timeout,
			CreateMissing: c.CreateMissing,
		})
		if err != nil {
			return nil, nil, err
		}
		return b, b.Close, nil
	default:
		return nil, nil, nil
	}
}

// GetOptions merges the options file with the flags. Flags win.
func GetOptions(c Config) (repository.Options, error) {
	var opts repository.Options
	if c.OptionsFile != "" {
		data, err := os.ReadFile(c.OptionsFile)
		if err != nil {
			return opts, fmt.Errorf("reading options file: %w", err)
		}
		if opts, err = repository.ParseOptions(data); err != nil {
			return opts, err
		}
	}

	enabled := c.Cookies
	opts.CookiesEnabled = &enabled
	if c.CookieName != "" {
		if opts.CookieConfig == nil {
			opts.CookieConfig = &repository.CookieConfigPatch{}
		}
		name := c.CookieName
		opts.CookieConfig.Name = &name
	}
	return opts, nil
}

// OpenRepository opens the cookie jar and the external store and loads the repository
func OpenRepository(ctx context.Context, c Config) (*Session, error) {
	medium, err := GetMedium(c)
	if err != nil {
		return nil, err
	}
	cdc, err := GetCodec(c)
	if err != nil {
		return nil, err
	}
	opts, err := GetOptions(c)
	if err != nil {
		return nil, err
	}

	s := &Session{Config: c}
	repoOpts := []repository.Option{
		repository.WithCodec(cdc),
		repository.WithWriteTimeout(c.Timeout),
	}

	b, closeBackend, err := GetBackend(c)
	if err != nil {
		return nil, err
	}
	if b != nil {
		s.Backend = b
		s.closers = append(s.closers, closeBackend)
		repoOpts = append(repoOpts, repository.WithBackend(b))
	}

	s.Repo = repository.New(medium, repoOpts...)
	Logger.Debugf("loading repository with %s", opts)
	if err := s.Repo.SetOptions(ctx, opts); err != nil {
		// a failed fetch leaves the repository empty in cookie mode
		if !errors.Is(err, repository.ErrExternal) {
			_ = s.Close(ctx)
			return nil, err
		}
		Logger.Warningf("could not load repository, continuing without handle: %v", err)
	}
	return s, nil
}

// Close writes pending changes and releases all resources
func (s *Session) Close(ctx context.Context) error {
	var errs []error
	if s.Repo != nil {
		errs = append(errs, s.Repo.Close(ctx))
	}
	for _, closer := range s.closers {
		errs = append(errs, closer())
	}
	if s.Config.PrintMetrics {
		metrics.WritePrometheus(os.Stdout, false)
	}
	return errors.Join(errs...)
}

// --------------------------------------------------------------------------
// Values
// --------------------------------------------------------------------------

// ParseValue reads a command line value as JSON and falls back to the plain string
func ParseValue(arg string) any {
	var v any
	if err := json.Unmarshal([]byte(arg), &v); err != nil {
		return arg
	}
	return v
}

// FormatValue renders a value as indented JSON
func FormatValue(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// RunWithSession returns a cobra RunE that opens the repository, runs fn and
// closes the session again, writing pending changes.
func RunWithSession(fn func(ctx context.Context, s *Session, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := BindCommandFlags(cmd); err != nil {
			return err
		}
		c := GetConfig()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if c.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.Timeout)
			defer cancel()
		}

		s, err := OpenRepository(ctx, c)
		if err != nil {
			return err
		}
		runErr := fn(ctx, s, args)
		return errors.Join(runErr, s.Close(ctx))
	}
}
