package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/authrouter/authrouter/internal/config"
	"github.com/authrouter/authrouter/internal/database"
	"github.com/authrouter/authrouter/internal/models"
	"github.com/authrouter/authrouter/internal/users"
	"github.com/authrouter/authrouter/pkg/logger"
	"github.com/spf13/cobra"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	defer logger.Sync()
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore connects to the user store named by cfg. Replaced in tests.
var openStore = openUserStore

func openUserStore(ctx context.Context, cfg *config.Config) (*users.Service, func(), error) {
	if cfg.Store.Driver == "mongo" {
		client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 1)
		if err != nil {
			return nil, nil, err
		}
		repo := users.NewMongoUserRepository(client.Database(cfg.MongoDB.Database).Collection("users"))
		return users.NewService(repo), func() { _ = client.Disconnect(context.Background()) }, nil
	}
	db, err := database.OpenSQLite(ctx, cfg.Store.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	return users.NewService(users.NewSQLiteUserRepository(db)), func() { _ = db.Close() }, nil
}

func newRootCmd(out io.Writer) *cobra.Command {
	var sqlitePath string

	// withStore opens the store for one command and always closes it,
	// including when the command fails.
	withStore := func(run func(cmd *cobra.Command, svc *users.Service, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if sqlitePath != "" {
				cfg.Store.Driver = "sqlite"
				cfg.Store.SQLitePath = sqlitePath
			}
			svc, closeStore, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("open user store: %w", err)
			}
			defer closeStore()
			return run(cmd, svc, args)
		}
	}

	root := &cobra.Command{
		Use:          "userstore",
		Short:        "Inspect and edit the auth router user table",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.SetErr(out)
	root.PersistentFlags().StringVar(&sqlitePath, "sqlite", "", "SQLite file to use instead of the configured store")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the user table if missing",
		Args:  cobra.NoArgs,
		RunE: withStore(func(cmd *cobra.Command, svc *users.Service, args []string) error {
			// opening the store applied the schema
			fmt.Fprintln(cmd.OutOrStdout(), "user store ready")
			return nil
		}),
	}

	getCmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Print a user row as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(func(cmd *cobra.Command, svc *users.Service, args []string) error {
			u, err := svc.GetByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if u == nil {
				return fmt.Errorf("user %q not found", args[0])
			}
			b, err := json.MarshalIndent(viewOf(u), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		}),
	}

	ensureCmd := &cobra.Command{
		Use:   "ensure <id> <provider>",
		Short: "Create a user row the way a first login would",
		Args:  cobra.ExactArgs(2),
		RunE: withStore(func(cmd *cobra.Command, svc *users.Service, args []string) error {
			created, err := svc.EnsureUser(cmd.Context(), models.Identity{ID: args[0], Provider: args[1]})
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "exists %s\n", args[0])
			}
			return nil
		}),
	}

	setProfileCmd := &cobra.Command{
		Use:   "set-profile <id> <image>",
		Short: "Set a user's profile image",
		Args:  cobra.ExactArgs(2),
		RunE: withStore(func(cmd *cobra.Command, svc *users.Service, args []string) error {
			u, err := svc.GetByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if u == nil {
				return fmt.Errorf("user %q not found", args[0])
			}
			if err := svc.SetProfile(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "profile of %s set\n", args[0])
			return nil
		}),
	}

	root.AddCommand(initCmd, getCmd, ensureCmd, setProfileCmd)
	return root
}

// userView is the printed form of a row; profile shows as rendered.
type userView struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Profile  string `json:"profile"`
}

func viewOf(u *models.User) userView {
	return userView{ID: u.ID, Provider: u.Provider, Profile: u.ProfileOrDefault()}
}
