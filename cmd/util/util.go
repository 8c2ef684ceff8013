package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/pRepo/lib/repository"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}
	return strings.Join(wrappedLines, "\n")
}

// SetupRepositoryFlags adds the flags every repository command understands
func SetupRepositoryFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	key := "cookie-file"
	flags.String(key, ".prepo/cookies.json", WrapString("File the cookie jar is stored in"))
	key = "cookie-name"
	flags.String(key, "", WrapString("Name of the repository cookie (default persistent-repository)"))
	key = "cookies"
	flags.Bool(key, true, WrapString("Whether persisting to the cookie jar is allowed. Disabling deletes the cookie"))
	key = "codec"
	flags.String(key, "deflate", WrapString("Codec for the cookie payload (deflate, zstd, s2, plain)"))
	key = "sqlite"
	flags.String(key, "", WrapString("Path of a SQLite database used as external store"))
	key = "http-endpoints"
	flags.String(key, "", WrapString("Comma-separated list of HTTP store endpoints used as external store (e.g. http://localhost:8080/store)"))
	key = "http-retries"
	flags.Int(key, 3, WrapString("How many times to try a request against the HTTP store"))
	key = "timeout"
	flags.Duration(key, 10*time.Second, WrapString("Timeout for loading and writing the repository"))
	key = "create-missing"
	flags.Bool(key, false, WrapString("Treat unknown handles as empty repositories instead of failing"))
	key = "config"
	flags.String(key, "", WrapString("YAML (or JSON) file with repository options (cookiesEnabled, cookieConfig, databaseHandle, defaults)"))
	key = "print-metrics"
	flags.Bool(key, false, WrapString("Print the metrics in Prometheus format on exit"))
}

// SetupGlobalFlags adds the flags of the root command
func SetupGlobalFlags(cmd *cobra.Command) {
	key := "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// InitConfig loads .env files and environment variables (PREPO_<FLAG>)
func InitConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("prepo")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// --------------------------------------------------------------------------
// Config
// --------------------------------------------------------------------------

// Config is the effective CLI configuration
type Config struct {
	CookieFile    string
	CookieName    string
	Cookies       bool
	Codec         string
	SQLite        string
	HTTPEndpoints []string
	HTTPRetries   int
	Timeout       time.Duration
	CreateMissing bool
	OptionsFile   string
	LogLevel      string
	PrintMetrics  bool
}

// GetConfig reads the configuration from viper
func GetConfig() Config {
	var endpoints []string
	for _, e := range strings.Split(viper.GetString("http-endpoints"), ",") {
		if e = strings.TrimSpace(e); e != "" {
			endpoints = append(endpoints, e)
		}
	}

	return Config{
		CookieFile:    viper.GetString("cookie-file"),
		CookieName:    viper.GetString("cookie-name"),
		Cookies:       viper.GetBool("cookies"),
		Codec:         viper.GetString("codec"),
		SQLite:        viper.GetString("sqlite"),
		HTTPEndpoints: endpoints,
		HTTPRetries:   viper.GetInt("http-retries"),
		Timeout:       viper.GetDuration("timeout"),
		CreateMissing: viper.GetBool("create-missing"),
		OptionsFile:   viper.GetString("config"),
		LogLevel:      viper.GetString("log-level"),
		PrintMetrics:  viper.GetBool("print-metrics"),
	}
}

// StoreName describes the configured external store
func (c Config) StoreName() string {
	switch {
	case c.SQLite != "":
		return "sqlite (" + c.SQLite + ")"
	case len(c.HTTPEndpoints) > 0:
		return "http (" + strings.Join(c.HTTPEndpoints, ", ") + ")"
	default:
		return "none"
	}
}

// String returns a formatted representation of the configuration
func (c Config) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	orDefault := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}

	addSection("Cookie")
	addField("Jar File", c.CookieFile)
	addField("Name", orDefault(c.CookieName, "(default)"))
	addField("Enabled", fmt.Sprintf("%t", c.Cookies))
	addField("Codec", c.Codec)

	addSection("External Store")
	addField("Store", c.StoreName())
	if len(c.HTTPEndpoints) > 0 {
		addField("Retries", fmt.Sprintf("%d", c.HTTPRetries))
	}
	addField("Create Missing", fmt.Sprintf("%t", c.CreateMissing))
	addField("Timeout", c.Timeout.String())

	addSection("Options")
	addField("Options File", orDefault(c.OptionsFile, "-"))

	addSection("Logging")
	addField("Log Level", c.LogLevel)
	addField("Print Metrics", fmt.Sprintf("%t", c.PrintMetrics))

	return sb.String()
}

// RepositoryState returns a formatted representation of the repository state
func RepositoryState(r *repository.Repository) string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	c := r.CookieConfig()
	handle := r.DatabaseHandle().String()
	if handle == "" {
		handle = "- (cookie mode)"
	}
	expires := "session"
	if c.Expires > 0 {
		expires = c.Expires.String()
	}

	addSection("Repository")
	addField("Handle", handle)
	addField("Initialized", fmt.Sprintf("%t", r.IsInitialized()))
	addField("Cookies Enabled", fmt.Sprintf("%t", r.CookiesEnabled()))
	addField("Codec", r.CodecName())
	addField("Top-Level Keys", fmt.Sprintf("%d", len(r.GetValues())))
	addField("Defaults", fmt.Sprintf("%d keys", len(r.Defaults())))

	addSection("Cookie Attributes")
	addField("Name", c.Name)
	addField("Expires", expires)
	addField("Path", c.Path)
	addField("Domain", c.Domain)
	addField("Secure", fmt.Sprintf("%t", c.Secure))
	addField("SameSite", string(c.SameSite))

	return sb.String()
}
