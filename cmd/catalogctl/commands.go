package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"gamecatalog/internal/auth"
)

func (a *app) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.openDB(cmd.Context()); err != nil {
				return err
			}
			a.log.Info().Str("driver", string(a.dialect)).Msg("schema up to date")
			return nil
		},
	}
}

func (a *app) importCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Create persisted games from a CSV file",
		Long: `Each data row becomes one persisted game. Rows whose title already
exists are skipped, as are rows that fail validation; both are reported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			report, err := svc.ImportCSV(ctx, f)
			if err != nil {
				return fmt.Errorf("import %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "created %d games from %s\n", report.Created, args[0])
			for _, title := range report.Duplicates {
				fmt.Fprintf(out, "  skipped duplicate: %s\n", title)
			}
			rows := make([]int, 0, len(report.Invalid))
			for n := range report.Invalid {
				rows = append(rows, n)
			}
			sort.Ints(rows)
			for _, n := range rows {
				fmt.Fprintf(out, "  skipped row %d: %s\n", n, report.Invalid[n])
			}
			return nil
		},
	}
}

func (a *app) exportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file.csv>",
		Short: "Write all persisted games to a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(filepath.Dir(args[0]), 0o755); err != nil {
				return err
			}
			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			n, err := svc.ExportCSV(ctx, f)
			if err != nil {
				return fmt.Errorf("export %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d games to %s\n", n, args[0])
			return nil
		},
	}
}

func (a *app) staticCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "static",
		Short: "Print the normalized static catalog as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, svc.StaticEntries())
		},
	}
}

func (a *app) optionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "Print the genre, platform and developer filter options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, err := a.service(ctx)
			if err != nil {
				return err
			}
			opts, err := svc.FilterOptions(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, opts)
		},
	}
}

func (a *app) promoteCommand() *cobra.Command {
	var demote bool
	cmd := &cobra.Command{
		Use:   "promote <email>",
		Short: "Grant a user the admin role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.openDB(ctx); err != nil {
				return err
			}

			role := auth.RoleAdmin
			if demote {
				role = auth.RoleUser
			}
			err := auth.NewRepo(a.db, a.dialect).SetRole(ctx, args[0], role)
			if errors.Is(err, auth.ErrUserNotFound) {
				return fmt.Errorf("no user with email %s", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s; existing tokens were revoked\n", args[0], role)
			return nil
		},
	}
	cmd.Flags().BoolVar(&demote, "demote", false, "set the role back to USER")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
