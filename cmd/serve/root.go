package serve

import (
	"fmt"
	"strings"

	cmdUtil "github.com/ValentinKolb/pRepo/cmd/util"
	"github.com/ValentinKolb/pRepo/lib/backend/httpbackend"
	"github.com/ValentinKolb/pRepo/lib/backend/memory"
	"github.com/ValentinKolb/pRepo/lib/backend/sqlite"
	"github.com/ValentinKolb/pRepo/lib/repository"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ServerConfig is the configuration of the serve command
type ServerConfig struct {
	Endpoint      string
	Prefix        string
	SQLite        string
	CreateMissing bool
	LogLevel      string
}

// String returns a formatted representation of the configuration
func (c ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("HTTP Store")
	addField("Endpoint", c.Endpoint)
	addField("Prefix", c.Prefix)

	addSection("Storage")
	if c.SQLite != "" {
		addField("SQLite", c.SQLite)
	} else {
		addField("Memory", "(not persisted)")
	}
	addField("Create Missing", fmt.Sprintf("%t", c.CreateMissing))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

var (
	serveCmdConfig = &ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start an HTTP store for repositories",
		Long:    `Start an HTTP store that repositories can use as external store (--http-endpoints). The configuration can be set via command line flags or environment variables. The format of the environment variables is PREPO_<flag> (e.g. PREPO_ENDPOINT=0.0.0.0:9000)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	key := "endpoint"
	ServeCmd.Flags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the store will listen"))

	key = "prefix"
	ServeCmd.Flags().String(key, "/store", cmdUtil.WrapString("URL path below which the repositories are served"))

	key = "sqlite"
	ServeCmd.Flags().String(key, "", cmdUtil.WrapString("Path of the SQLite database holding the repositories. Without it the repositories are kept in memory"))

	key = "create-missing"
	ServeCmd.Flags().Bool(key, true, cmdUtil.WrapString("Answer unknown handles with an empty repository instead of 404"))
}

// processConfig reads the flags and environment variables into the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.Prefix = "/" + strings.Trim(viper.GetString("prefix"), "/")
	serveCmdConfig.SQLite = viper.GetString("sqlite")
	serveCmdConfig.CreateMissing = viper.GetBool("create-missing")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	if serveCmdConfig.Endpoint == "" {
		return fmt.Errorf("endpoint must not be empty")
	}
	return nil
}

// run starts the HTTP store
func run(_ *cobra.Command, _ []string) error {
	cmdUtil.Logger.Infof("starting with configuration:\n%s", serveCmdConfig)

	var store repository.IBackend
	if serveCmdConfig.SQLite != "" {
		cfg := sqlite.DefaultConfig(serveCmdConfig.SQLite)
		cfg.CreateMissing = serveCmdConfig.CreateMissing
		b, err := sqlite.Open(cfg)
		if err != nil {
			return err
		}
		defer b.Close()
		store = b
	} else {
		store = memory.New(memory.WithCreateMissing(serveCmdConfig.CreateMissing))
	}

	srv := httpbackend.NewServer(store, serveCmdConfig.LogLevel == "debug")
	r := chi.NewRouter()
	r.Mount(serveCmdConfig.Prefix, srv.Router())
	return httpbackend.ListenAndServe(serveCmdConfig.Endpoint, r)
}
