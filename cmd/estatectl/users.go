package main

import (
	"fmt"
	"io"

	"estate-portal/internal/auth/models"
	"estate-portal/internal/client"

	"github.com/spf13/cobra"
)

// ============================================================
// Users
// ============================================================

func (a *cli) usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage back-office users (admin only)",
	}
	cmd.AddCommand(a.usersListCmd(), a.usersCreateCmd(), a.usersUpdateCmd(), a.usersDeleteCmd())
	return cmd
}

func (a *cli) usersListCmd() *cobra.Command {
	var search, role string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.client()
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			users, err := api.ListUsers(ctx, search, models.Role(role))
			if err != nil {
				return err
			}
			return a.render(cmd, users, func(w io.Writer) { userTable(w, users) })
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "Search by login, name or email")
	cmd.Flags().StringVar(&role, "role", "", "admin or manager")
	return cmd
}

func (a *cli) usersCreateCmd() *cobra.Command {
	var (
		in       client.UserInput
		role     string
		inactive bool
	)

	cmd := &cobra.Command{
		Use:   "create <login>",
		Short: "Create a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Login = args[0]
			in.Role = models.Role(role)
			if inactive {
				active := false
				in.Active = &active
			}

			api, err := a.client()
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			user, err := api.CreateUser(ctx, in)
			if err != nil {
				return err
			}
			return a.render(cmd, user, func(w io.Writer) { userTable(w, []models.User{*user}) })
		},
	}
	cmd.Flags().StringVar(&in.Password, "password", "", "Password")
	cmd.Flags().StringVar(&in.FIO, "fio", "", "Full name")
	cmd.Flags().StringVar(&in.Email, "email", "", "Email")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "Phone in E.164 format")
	cmd.Flags().StringVar(&role, "role", string(models.RoleManager), "admin or manager")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Create the account disabled")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("fio")
	return cmd
}

func (a *cli) usersUpdateCmd() *cobra.Command {
	var fio, email, phone, role, password string
	var active bool

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change user fields; only passed flags are sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd client.UserUpdate
			changed := cmd.Flags().Changed
			if changed("fio") {
				upd.FIO = &fio
			}
			if changed("email") {
				upd.Email = &email
			}
			if changed("phone") {
				upd.Phone = &phone
			}
			if changed("role") {
				r := models.Role(role)
				upd.Role = &r
			}
			if changed("active") {
				upd.Active = &active
			}
			if changed("password") {
				upd.Password = &password
			}
			if upd == (client.UserUpdate{}) {
				return fmt.Errorf("nothing to update")
			}

			api, err := a.client()
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			user, err := api.UpdateUser(ctx, args[0], upd)
			if err != nil {
				return err
			}
			return a.render(cmd, user, func(w io.Writer) { userTable(w, []models.User{*user}) })
		},
	}
	cmd.Flags().StringVar(&fio, "fio", "", "Full name")
	cmd.Flags().StringVar(&email, "email", "", "Email")
	cmd.Flags().StringVar(&phone, "phone", "", "Phone in E.164 format")
	cmd.Flags().StringVar(&role, "role", "", "admin or manager")
	cmd.Flags().BoolVar(&active, "active", true, "Enable or disable the account (--active=false)")
	cmd.Flags().StringVar(&password, "password", "", "New password")
	return cmd
}

func (a *cli) usersDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.client()
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			if err := api.DeleteUser(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %s deleted\n", args[0])
			return nil
		},
	}
}

func userTable(w io.Writer, users []models.User) {
	row(w, "ID", "LOGIN", "FIO", "ROLE", "ACTIVE", "EMAIL")
	for _, u := range users {
		row(w, u.ID, u.Login, u.FIO, u.Role, u.Active, u.Email)
	}
}
