package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"optigov.org/internal/domain"
)

func (a *app) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the predefined companies (and admin) in an empty store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, closeStore, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()
			seeded, err := st.Seed(cmd.Context(), a.seedAdmin())
			if err != nil {
				return err
			}
			if !seeded {
				fmt.Fprintln(cmd.OutOrStdout(), "store already has users; nothing seeded")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "seeded predefined companies")
			return nil
		},
	}
}

func (a *app) analyticsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show the admin analytics snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, closeStore, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()
			snapshot, err := st.GetAnalytics(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(snapshot)
			}
			renderAnalytics(cmd.OutOrStdout(), snapshot)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of the rendered report")
	return cmd
}

func (a *app) usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect and manage accounts",
	}

	var role string
	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, closeStore, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()

			var users []domain.User
			if role != "" {
				r := domain.Role(role)
				if !r.Valid() {
					return fmt.Errorf("unknown role %q", role)
				}
				users, err = st.GetUsersByRole(cmd.Context(), r)
			} else {
				users, err = st.GetAllUsers(cmd.Context())
			}
			if err != nil {
				return err
			}
			renderUsers(cmd.OutOrStdout(), users, time.Now())
			return nil
		},
	}
	list.Flags().StringVar(&role, "role", "", "only list citizen, company or admin accounts")

	setActive := &cobra.Command{
		Use:   "set-active ID true|false",
		Short: "Activate or deactivate an account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			active, err := strconv.ParseBool(args[1])
			if err != nil {
				return fmt.Errorf("active must be true or false: %w", err)
			}
			st, closeStore, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()
			u, err := st.SetUserActive(cmd.Context(), args[0], active)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) active=%t\n", u.DisplayName(), u.ID, u.IsActive)
			return nil
		},
	}

	cmd.AddCommand(list, setActive)
	return cmd
}

func (a *app) requestsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "requests",
		Short: "Inspect data subject requests",
	}
	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List all requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "" && !domain.RequestStatus(status).Valid() {
				return fmt.Errorf("unknown status %q", status)
			}
			st, closeStore, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()
			reqs, err := st.GetAllRequests(cmd.Context())
			if err != nil {
				return err
			}
			if status != "" {
				kept := reqs[:0]
				for _, r := range reqs {
					if r.Status == domain.RequestStatus(status) {
						kept = append(kept, r)
					}
				}
				reqs = kept
			}
			renderRequests(cmd.OutOrStdout(), reqs, time.Now())
			return nil
		},
	}
	list.Flags().StringVar(&status, "status", "", "only list pending, approved or rejected requests")
	cmd.AddCommand(list)
	return cmd
}
