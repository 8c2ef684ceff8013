package kv

import (
	"context"
	"fmt"

	"github.com/ValentinKolb/pRepo/cmd/util"
	"github.com/spf13/cobra"
)

var (
	getCmd = &cobra.Command{
		Use:   "get [path]",
		Short: "Reads the value at a path",
		Args:  cobra.ExactArgs(1),
		RunE: withTarget(func(_ context.Context, _ *util.Session, t target, args []string) error {
			v, ok := t.GetValue(args[0])
			if !ok {
				return fmt.Errorf("path %q not found", args[0])
			}
			fmt.Println(util.FormatValue(v))
			return nil
		}),
	}
	setCmd = &cobra.Command{
		Use:   "set [path] [value]",
		Short: "Sets the value at a path",
		Args:  cobra.ExactArgs(2),
		RunE: withTarget(func(_ context.Context, _ *util.Session, t target, args []string) error {
			if err := t.SetValue(args[0], util.ParseValue(args[1])); err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		}),
	}
	delCmd = &cobra.Command{
		Use:   "del [path]",
		Short: "Removes the value at a path",
		Args:  cobra.ExactArgs(1),
		RunE: withTarget(func(_ context.Context, _ *util.Session, t target, args []string) error {
			if err := t.ClearValue(args[0]); err != nil {
				return err
			}
			fmt.Println("delete successfully")
			return nil
		}),
	}
	containsCmd = &cobra.Command{
		Use:   "contains [path] [value]",
		Short: "Checks if the array at a path contains a value",
		Args:  cobra.ExactArgs(2),
		RunE: withTarget(func(_ context.Context, _ *util.Session, t target, args []string) error {
			found := t.ContainsValue(args[0], util.ParseValue(args[1]))
			fmt.Printf("path=%s, found=%t\n", args[0], found)
			return nil
		}),
	}
	dumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "Prints all values",
		Args:  cobra.NoArgs,
		RunE: withTarget(func(_ context.Context, _ *util.Session, t target, _ []string) error {
			fmt.Println(util.FormatValue(t.GetValues()))
			return nil
		}),
	}
	defaultCmd = &cobra.Command{
		Use:   "default [path] [value]",
		Short: "Sets the value at a path unless it is already set and prints the effective value",
		Args:  cobra.ExactArgs(2),
		RunE: withTarget(func(_ context.Context, _ *util.Session, t target, args []string) error {
			v, err := t.SetDefaultValue(args[0], util.ParseValue(args[1]))
			if err != nil {
				return err
			}
			fmt.Println(util.FormatValue(v))
			return nil
		}),
	}
	resetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Resets the repository to the defaults of the options file",
		Args:  cobra.NoArgs,
		RunE: util.RunWithSession(func(ctx context.Context, s *util.Session, _ []string) error {
			if err := s.Repo.ResetValues(ctx); err != nil {
				return err
			}
			fmt.Println("reset successfully")
			return nil
		}),
	}
)
