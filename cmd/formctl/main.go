package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"go-form-editor/internal/database"
	"go-form-editor/internal/editentry"
	"go-form-editor/internal/forms"
	"go-form-editor/internal/model"
	"go-form-editor/internal/repository"
	"go-form-editor/internal/service"
)

var databaseURL string

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "formctl: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "formctl",
		Short: "Administer the form editor database",
		Long: `formctl prepares the PostgreSQL schema, imports form definitions from YAML,
inspects entries and creates accounts without going through the HTTP API.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	cmd.AddCommand(
		newMigrateCmd(),
		newFormsCmd(),
		newEntriesCmd(),
		newUsersCmd(),
	)
	return cmd
}

func connect(ctx context.Context) (*database.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("--database-url or DATABASE_URL is required")
	}

	db, err := database.New(ctx, databaseURL, database.PoolOptions{MaxConns: 2, ApplicationName: "formctl"})
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func newFormsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forms",
		Short: "Manage form definitions",
	}

	importCmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Create or replace forms from a YAML definition file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			definitions, err := forms.LoadDefinitions(args[0])
			if err != nil {
				return err
			}

			db, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			repo := repository.NewFormRepository(db.Pool)
			for i := range definitions {
				if err := repo.UpsertForm(cmd.Context(), &definitions[i]); err != nil {
					return fmt.Errorf("import form %d: %w", definitions[i].ID, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported form %d %q\n", definitions[i].ID, definitions[i].Title)
			}
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List stored forms",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			items, err := repository.NewFormRepository(db.Pool).ListForms(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE")
			for _, item := range items {
				fmt.Fprintf(w, "%d\t%s\n", item.ID, item.Title)
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(importCmd, listCmd)
	return cmd
}

func newEntriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entries",
		Short: "Inspect entries",
	}

	var formID int64
	var userID string
	latestCmd := &cobra.Command{
		Use:   "latest",
		Short: "Print the entry a user would edit on a form",
		RunE: func(cmd *cobra.Command, args []string) error {
			if formID <= 0 || strings.TrimSpace(userID) == "" {
				return fmt.Errorf("--form and --user are required")
			}

			db, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			entries := repository.NewEntryRepository(db.Pool)
			editor := editentry.New(entries, repository.NewFormRepository(db.Pool), nil, nil, nil, editentry.Options{})

			entryID, ok := editor.LatestEntryID(cmd.Context(), formID, model.Actor{ID: userID})
			if !ok {
				return fmt.Errorf("user %s has no active entry on form %d", userID, formID)
			}

			entry, err := entries.GetEntry(cmd.Context(), entryID)
			if err != nil {
				return err
			}
			notes, err := entries.ListNotes(cmd.Context(), entryID)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"entry": entry, "notes": notes})
		},
	}
	latestCmd.Flags().Int64Var(&formID, "form", 0, "Form id")
	latestCmd.Flags().StringVar(&userID, "user", "", "User id")

	cmd.AddCommand(latestCmd)
	return cmd
}

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage accounts",
	}

	var displayName, password, role string
	addCmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				password = os.Getenv("FORMCTL_PASSWORD")
			}
			if password == "" {
				var err error
				if password, err = promptPassword(cmd); err != nil {
					return err
				}
			}

			db, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			auth := service.NewAuthService(repository.NewUserRepository(db.Pool), repository.NewTokenRepository(db.Pool), "unused", time.Minute, time.Minute)
			user, err := auth.Register(cmd.Context(), args[0], displayName, password, role)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created %s user %s (%s)\n", user.Role, user.Username, user.ID)
			return nil
		},
	}
	addCmd.Flags().StringVar(&displayName, "name", "", "Display name")
	addCmd.Flags().StringVar(&password, "password", "", "Password (defaults to $FORMCTL_PASSWORD, then a prompt)")
	addCmd.Flags().StringVar(&role, "role", model.RoleSubscriber, "Role: admin, editor or subscriber")

	cmd.AddCommand(addCmd)
	return cmd
}

// promptPassword reads a password from the terminal without echo.
func promptPassword(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("--password is required when stdin is not a terminal")
	}

	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}
