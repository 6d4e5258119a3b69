package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"speakwell/internal/config"
	"speakwell/internal/database"
	"speakwell/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "speakwell-backup",
		Short:         "Export, import and seed the speakwell database",
		SilenceUsage:  true,
	}
	root.AddCommand(newExportCmd(), newImportCmd(), newSeedCmd())
	return root
}

// openDB loads config, connects and migrates
func openDB(ctx context.Context) (*database.DB, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := db.RunMigrations(ctx, cfg.MigrationsPath); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, cfg, nil
}

func newExportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every table to a JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, _, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if output == "" {
				output = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
			}
			if dir := filepath.Dir(output); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("failed to create output directory: %w", err)
				}
			}

			slog.Info("exporting database", "output", output)
			if err := service.NewBackupService(db).Export(ctx, output); err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			info, err := os.Stat(output)
			if err == nil {
				slog.Info("export complete", "size_mb", fmt.Sprintf("%.2f", float64(info.Size())/1024/1024))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file path (default: backup_YYYYMMDD_HHMMSS.json)")
	return cmd
}

func newImportCmd() *cobra.Command {
	var (
		input     string
		clearData bool
		yes       bool
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Restore a JSON backup into the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if _, err := os.Stat(input); err != nil {
				return fmt.Errorf("input file: %w", err)
			}

			db, _, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()
			backup := service.NewBackupService(db)

			if clearData {
				if !yes && !confirm(cmd, "WARNING: This will delete all existing data. Type 'yes' to confirm: ") {
					slog.Info("import cancelled")
					return nil
				}
				slog.Info("clearing existing data")
				if err := backup.Clear(ctx); err != nil {
					return err
				}
			}

			slog.Info("importing database", "input", input)
			if err := backup.Import(ctx, input); err != nil {
				return fmt.Errorf("import failed: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "backup file to import")
	cmd.Flags().BoolVar(&clearData, "clear", false, "delete existing data before import (destructive)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newSeedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create word databases from a YAML file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, _, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := service.NewWordSeeder(db).SeedFile(ctx, file)
			if err != nil {
				return err
			}
			slog.Info("seed complete", "created", n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "./seeds/word_databases.yaml", "seed file")
	return cmd
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	return strings.TrimSpace(line) == "yes"
}
