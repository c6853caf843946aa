package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/homecare/internal/config"
	"github.com/ehr/homecare/internal/domain/coordination"
	"github.com/ehr/homecare/internal/domain/draft"
	"github.com/ehr/homecare/internal/platform/db"
	"github.com/ehr/homecare/internal/platform/report"
)

// now is replaced in tests.
var now = time.Now

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Load the roster and write it as an importable snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store := loadStore(cmd.Context(), cfg, newLogger(cfg))

			ts := now()
			if out == "" {
				out = coordination.ExportFileName(ts)
			}
			data, err := json.MarshalIndent(coordination.Export(store.State(), ts), "", "  ")
			if err != nil {
				return fmt.Errorf("encode snapshot: %w", err)
			}
			if err := writeOutput(cmd.OutOrStdout(), out, data); err != nil {
				return err
			}
			if out != "-" {
				fmt.Fprintf(cmd.OutOrStdout(), "Snapshot written to %s\n", out)
			}
			return nil
		},
	}
	cmd.Flags().String("out", "", `Output file ("-" for stdout, default homecare-YYYY-MM-DD.json)`)
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the postgres draft tables",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrator, closeFn, err := openMigrator(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			count, err := migrator.Up(cmd.Context())
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			migrator, closeFn, err := openMigrator(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			statuses, err := migrator.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printStatuses(cmd.OutOrStdout(), statuses)
			return nil
		},
	})
	return cmd
}

func openMigrator(ctx context.Context) (*db.Migrator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required")
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, err
	}
	return db.NewMigrator(pool, db.Migrations()), pool.Close, nil
}

func printStatuses(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func draftsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drafts",
		Short: "Maintain cached drafts",
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove drafts older than --max-age",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			maxAge := cfg.DraftMaxAge
			if cmd.Flags().Changed("max-age") {
				maxAge, _ = cmd.Flags().GetDuration("max-age")
			}

			backend, err := openDraftBackend(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer backend.Close()

			n, err := draft.NewService(backend.Repo).Sweep(cmd.Context(), maxAge)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d draft(s) older than %s.\n", n, maxAge)
			return nil
		},
	}
	sweepCmd.Flags().Duration("max-age", 0, "Age threshold (default DRAFT_MAX_AGE)")
	cmd.AddCommand(sweepCmd)
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write XLSX workbooks from a snapshot or the configured roster",
	}
	cmd.PersistentFlags().String("state", "", "Snapshot file (default: load DATA_SOURCE)")
	cmd.PersistentFlags().String("out", "", "Output file")

	visitsCmd := &cobra.Command{
		Use:   "visits",
		Short: "Visit schedule for --date",
		RunE: func(cmd *cobra.Command, args []string) error {
			date, _ := cmd.Flags().GetString("date")
			if date == "" {
				date = now().Format("2006-01-02")
			}
			st, err := reportState(cmd)
			if err != nil {
				return err
			}
			data, err := report.VisitSchedule(st, date)
			if err != nil {
				return err
			}
			return writeReport(cmd, fmt.Sprintf("visits-%s.xlsx", date), data)
		},
	}
	visitsCmd.Flags().String("date", "", "Visit date YYYY-MM-DD (default today)")

	criticalCmd := &cobra.Command{
		Use:   "critical",
		Short: "Critical-case cohorts",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := reportState(cmd)
			if err != nil {
				return err
			}
			ts := now()
			data, err := report.CriticalCases(st, ts)
			if err != nil {
				return err
			}
			return writeReport(cmd, fmt.Sprintf("critical-cases-%s.xlsx", ts.Format("2006-01-02")), data)
		},
	}

	cmd.AddCommand(visitsCmd, criticalCmd)
	return cmd
}

// reportState reads --state when given and loads the configured roster
// otherwise.
func reportState(cmd *cobra.Command) (coordination.State, error) {
	path, _ := cmd.Flags().GetString("state")
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return coordination.State{}, err
		}
		return loadStore(cmd.Context(), cfg, newLogger(cfg)).State(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return coordination.State{}, fmt.Errorf("read snapshot: %w", err)
	}
	snap, err := coordination.DecodeSnapshot(raw)
	if err != nil {
		return coordination.State{}, err
	}
	store := coordination.NewStore(coordination.InitialState(), nil, zerolog.Nop())
	return store.Dispatch(coordination.ImportState{Snapshot: snap}), nil
}

func writeReport(cmd *cobra.Command, defaultName string, data []byte) error {
	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		out = defaultName
	}
	if err := writeOutput(cmd.OutOrStdout(), out, data); err != nil {
		return err
	}
	if out != "-" {
		fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", out)
	}
	return nil
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
