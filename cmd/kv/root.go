package kv

import (
	"context"
	"fmt"

	"github.com/ValentinKolb/pRepo/cmd/util"
	"github.com/ValentinKolb/pRepo/lib/path"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// target is the part of the repository surface shared by the repository and
// its namespace views
type target interface {
	GetValue(p string) (any, bool)
	GetValues() path.Values
	SetValue(p string, value any) error
	ClearValue(p string) error
	SetDefaultValue(p string, value any) (any, error)
	ContainsValue(p string, scalar any) bool
}

var (
	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:   "kv",
		Short: "Read and modify repository values",
		Long: `Read and modify the values of the repository. Paths use dots and brackets (e.g. grid.columns[0]).
Values are parsed as JSON and fall back to a plain string.`,
	}
)

func init() {
	util.SetupRepositoryFlags(KeyValueCommands)
	KeyValueCommands.PersistentFlags().String("module", "", util.WrapString("Namespace to operate in (default: the whole repository)"))

	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(containsCmd)
	KeyValueCommands.AddCommand(dumpCmd)
	KeyValueCommands.AddCommand(defaultCmd)
	KeyValueCommands.AddCommand(resetCmd)
}

// withTarget runs fn against the repository or the namespace selected with --module
func withTarget(fn func(ctx context.Context, s *util.Session, t target, args []string) error) func(cmd *cobra.Command, args []string) error {
	return util.RunWithSession(func(ctx context.Context, s *util.Session, args []string) error {
		module := viper.GetString("module")
		if module == "" {
			return fn(ctx, s, s.Repo, args)
		}
		view, err := s.Repo.Namespace(module)
		if err != nil {
			return fmt.Errorf("invalid module: %w", err)
		}
		return fn(ctx, s, view, args)
	})
}
