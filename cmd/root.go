package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ValentinKolb/pRepo/cmd/handle"
	"github.com/ValentinKolb/pRepo/cmd/kv"
	"github.com/ValentinKolb/pRepo/cmd/serve"
	"github.com/ValentinKolb/pRepo/cmd/util"
	"github.com/ValentinKolb/pRepo/lib/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "prepo",
		Short: "persistent key-value repository",
		Long: fmt.Sprintf(`pRepo (v%s)

A path-addressable key-value repository persisted to a cookie jar or,
while a handle is active, to an external store (SQLite or HTTP).`, Version),
		SilenceUsage:      true,
		PersistentPreRunE: initLogging,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of pRepo",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("pRepo v%s\n", Version)
		},
	}
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration and repository state",
		Args:  cobra.NoArgs,
		RunE: util.RunWithSession(func(_ context.Context, s *util.Session, _ []string) error {
			fmt.Print(s.Config)
			fmt.Print(util.RepositoryState(s.Repo))
			return nil
		}),
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(handle.HandleCommands)
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(configCmd)
	RootCmd.AddCommand(versionCmd)

	util.SetupGlobalFlags(RootCmd)
	util.SetupRepositoryFlags(configCmd)
}

// initLogging binds the flags and sets the log level of all package loggers
func initLogging(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	return logging.InitLoggers(viper.GetString("log-level"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := RootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
