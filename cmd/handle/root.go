package handle

import (
	"context"
	"errors"
	"fmt"

	"github.com/ValentinKolb/pRepo/cmd/util"
	"github.com/ValentinKolb/pRepo/lib/repository"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	// HandleCommands represents the handle command group
	HandleCommands = &cobra.Command{
		Use:   "handle",
		Short: "Show or switch the external store handle",
		Long: `While a handle is active the repository is read from and written to the external store
(--sqlite or --http-endpoints) and the cookie only holds a pointer to the handle.`,
	}

	getCmd = &cobra.Command{
		Use:   "get",
		Short: "Prints the active handle",
		Args:  cobra.NoArgs,
		RunE: util.RunWithSession(func(_ context.Context, s *util.Session, _ []string) error {
			h := s.Repo.DatabaseHandle()
			if h.IsZero() {
				fmt.Println("no handle (cookie mode)")
				return nil
			}
			kind := "string"
			if h.IsNumber() {
				kind = "number"
			}
			fmt.Printf("handle=%s, type=%s\n", h, kind)
			return nil
		}),
	}
	setCmd = &cobra.Command{
		Use:   "set [handle]",
		Short: "Switches to a handle and loads its data",
		Long:  "Switches to a handle and loads its data. Integers are numeric handles, everything else is a string handle.",
		Args:  cobra.ExactArgs(1),
		RunE: util.RunWithSession(func(ctx context.Context, s *util.Session, args []string) error {
			h := repository.ParseHandle(args[0])
			if err := s.Repo.SetDatabaseHandle(ctx, h); err != nil {
				return err
			}
			fmt.Printf("switched to handle %s\n", h)
			return nil
		}),
	}
	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Switches back to cookie mode and resets the values to the defaults",
		Args:  cobra.NoArgs,
		RunE: util.RunWithSession(func(ctx context.Context, s *util.Session, _ []string) error {
			// after a failed load the handle is already cleared but the
			// pointer cookie is still there, the reset overwrites it
			reset := s.Repo.ClearDatabaseHandle
			if s.Repo.DatabaseHandle().IsZero() {
				reset = s.Repo.ResetValues
			}
			if err := reset(ctx); err != nil {
				return err
			}
			fmt.Println("handle cleared")
			return nil
		}),
	}
	newCmd = &cobra.Command{
		Use:   "new",
		Short: "Copies the current values to a new random handle and switches to it",
		Args:  cobra.NoArgs,
		RunE: util.RunWithSession(func(ctx context.Context, s *util.Session, _ []string) error {
			if s.Backend == nil {
				return errors.New("no external store configured (use --sqlite or --http-endpoints)")
			}
			h := repository.StringHandle(uuid.NewString())
			if err := s.Backend.Write(ctx, h, s.Repo.GetValues()); err != nil {
				return fmt.Errorf("creating record for %s: %w", h, err)
			}
			if err := s.Repo.SetDatabaseHandle(ctx, h); err != nil {
				return err
			}
			fmt.Println(h)
			return nil
		}),
	}
)

func init() {
	util.SetupRepositoryFlags(HandleCommands)

	HandleCommands.AddCommand(getCmd)
	HandleCommands.AddCommand(setCmd)
	HandleCommands.AddCommand(clearCmd)
	HandleCommands.AddCommand(newCmd)
}
