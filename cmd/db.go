package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/sign-vision/internal/config"
	"github.com/kozaktomas/sign-vision/internal/database/postgres"
	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database maintenance",
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	Args:  cobra.NoArgs,
	RunE:  runDBStatus,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	Args:  cobra.NoArgs,
	RunE:  runDBMigrate,
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbMigrateCmd)
}

func openPool(cfg *config.Config) (*postgres.Pool, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}
	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	return pool, nil
}

func runDBStatus(cmd *cobra.Command, args []string) error {
	pool, err := openPool(config.Load())
	if err != nil {
		return err
	}
	defer pool.Close()

	migrations, err := pool.Migrations(context.Background())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tAPPLIED")
	fmt.Fprintln(w, "-------\t-------")

	pending := 0
	for _, m := range migrations {
		applied := "pending"
		if m.AppliedAt != nil {
			applied = m.AppliedAt.Format("2006-01-02 15:04:05")
		} else {
			pending++
		}
		fmt.Fprintf(w, "%s\t%s\n", m.Version, applied)
	}

	w.Flush()

	fmt.Printf("\n%d migrations, %d pending\n", len(migrations), pending)
	return nil
}

func runDBMigrate(cmd *cobra.Command, args []string) error {
	pool, err := openPool(config.Load())
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Migrate(context.Background()); err != nil {
		return err
	}
	fmt.Println("Database is up to date.")
	return nil
}
