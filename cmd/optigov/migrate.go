package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"optigov.org/internal/kv"
	"optigov.org/internal/migrate"
)

func (a *app) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the kv_entries schema of SQL backends",
	}
	run := func(action string) *cobra.Command {
		return &cobra.Command{
			Use:   action,
			Short: strings.ToUpper(action[:1]) + action[1:] + " migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				db, dialect, err := kv.OpenDB(a.cfg.Storage)
				if err != nil {
					return err
				}
				defer db.Close()
				mgr, err := migrate.NewManager(db, dialect)
				if err != nil {
					return err
				}

				ctx := cmd.Context()
				switch action {
				case "up":
					err = mgr.Up(ctx)
				case "down":
					err = mgr.Down(ctx)
				case "status":
					var history []string
					history, err = mgr.Status(ctx)
					if err == nil {
						if len(history) == 0 {
							fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
						}
						for _, item := range history {
							fmt.Fprintln(cmd.OutOrStdout(), item)
						}
					}
				}
				if err != nil {
					return fmt.Errorf("migrate %s: %w", action, err)
				}
				if action != "status" {
					fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: ok (%s)\n", action, dialect)
				}
				return nil
			},
		}
	}
	cmd.AddCommand(run("up"), run("down"), run("status"))
	return cmd
}
