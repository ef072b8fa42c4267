package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"estate-portal/internal/client"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ============================================================
// estatectl
// ============================================================

// cli держит общие флаги и ленивый клиент API.
type cli struct {
	v   *viper.Viper
	log *zap.Logger
	api *client.Client
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	app := &cli{v: viper.New(), log: zap.NewNop()}

	root := &cobra.Command{
		Use:           "estatectl",
		Short:         "Catalog and user administration for the estate portal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if app.v.GetBool("verbose") {
				log, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				app.log = log
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.String("api", "http://localhost:3000/api/v1", "API gateway base URL (ESTATE_API)")
	flags.String("token", "", "Bearer token (ESTATE_TOKEN)")
	flags.String("token-file", defaultTokenFile(), "File where login stores the token")
	flags.StringP("output", "o", "table", "Output format: table, json, yaml")
	flags.Duration("timeout", 15*time.Second, "Request timeout")
	flags.BoolP("verbose", "v", false, "Log API calls")

	app.v.SetEnvPrefix("estate")
	app.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	app.v.AutomaticEnv()
	_ = app.v.BindPFlags(flags)

	root.AddCommand(
		app.loginCmd(),
		app.logoutCmd(),
		app.complexesCmd(),
		app.unitsCmd(),
		app.schemeCmd(),
		app.panoramasCmd(),
		app.promotionsCmd(),
		app.paymentsCmd(),
		app.usersCmd(),
	)
	return root
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "estatectl", "token")
}

// client создает клиент API при первом обращении; токен берётся из флага,
// окружения или файла после login.
func (a *cli) client() (*client.Client, error) {
	if a.api != nil {
		return a.api, nil
	}

	token := a.v.GetString("token")
	if token == "" {
		if path := a.v.GetString("token-file"); path != "" {
			if data, err := os.ReadFile(path); err == nil {
				token = strings.TrimSpace(string(data))
			} else if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read token file: %w", err)
			}
		}
	}

	api, err := client.New(a.v.GetString("api"), client.WithToken(token), client.WithLogger(a.log))
	if err != nil {
		return nil, err
	}
	a.api = api
	return api, nil
}

func (a *cli) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.v.GetDuration("timeout"))
}

// ============================================================
// Session
// ============================================================

func (a *cli) loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <login>",
		Short: "Log in and store the session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, _ := cmd.Flags().GetString("password")
			if password == "" {
				password = os.Getenv("ESTATE_PASSWORD")
			}
			if password == "" {
				return errors.New("password required (--password or ESTATE_PASSWORD)")
			}

			api, err := a.client()
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			res, err := api.Login(ctx, args[0], password)
			if err != nil {
				return err
			}

			if path := a.v.GetString("token-file"); path != "" {
				if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
					return err
				}
				if err := os.WriteFile(path, []byte(res.Token+"\n"), 0o600); err != nil {
					return fmt.Errorf("save token: %w", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s (%s)\n", res.User.Login, res.User.Role)
			return nil
		},
	}
	cmd.Flags().String("password", "", "Password (ESTATE_PASSWORD)")
	return cmd
}

func (a *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := a.client()
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			if err := api.Logout(ctx); err != nil {
				return err
			}
			if path := a.v.GetString("token-file"); path != "" {
				if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}
