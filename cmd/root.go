package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/khianthai/khian/internal/ids"
	"github.com/khianthai/khian/internal/logging"
	"github.com/khianthai/khian/internal/store"
)

var flushLogs = func() {}

var rootCmd = &cobra.Command{
	Use:           "khian",
	Short:         "Thai literacy learning backend",
	Long:          "khian: lesson progression, test grading and handwriting checks for Thai reading and writing classes.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		cfg := logging.ConfigFromEnv()
		cfg.Version = version
		flushLogs = logging.Setup(cfg)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		flushLogs()
	},
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Database DSN or SQLite file path (overrides KHIAN_DB env var)")
	rootCmd.PersistentFlags().String("driver", "", "Database driver: sqlite, postgres or mysql (overrides KHIAN_DB_DRIVER env var)")

	rootCmd.AddCommand(lessonsCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(activityCmd)
	rootCmd.AddCommand(pretestCmd)
	rootCmd.AddCommand(posttestCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(gameCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(notificationsCmd)
	rootCmd.AddCommand(curriculumCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// openStore opens the database selected by --driver/--db, then
// KHIAN_DB_DRIVER/KHIAN_DB, then the default SQLite file.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	driver, _ := cmd.Flags().GetString("driver")
	if driver == "" {
		driver = os.Getenv("KHIAN_DB_DRIVER")
	}
	if driver == "" {
		driver = store.DriverSQLite
	}

	dsn, _ := cmd.Flags().GetString("db")
	switch {
	case dsn != "" && driver == store.DriverSQLite:
		if err := store.EnsureDir(dsn); err != nil {
			return nil, fmt.Errorf("resolve database path: %w", err)
		}
	case dsn == "" && driver == store.DriverSQLite:
		p, err := store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve database path: %w", err)
		}
		dsn = p
	case dsn == "":
		dsn = os.Getenv("KHIAN_DB")
		if dsn == "" {
			return nil, fmt.Errorf("%s requires --db or KHIAN_DB", driver)
		}
	}

	s, err := store.OpenDriver(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

// idFlag reads a required identifier flag.
func idFlag(cmd *cobra.Command, name string) (ids.ID, error) {
	v, _ := cmd.Flags().GetString(name)
	id, err := ids.Parse(v)
	if err != nil {
		return "", fmt.Errorf("--%s: %w", name, err)
	}
	return id, nil
}

// idArg parses a positional identifier.
func idArg(args []string, i int, what string) (ids.ID, error) {
	id, err := ids.Parse(args[i])
	if err != nil {
		return "", fmt.Errorf("invalid %s %q: %w", what, args[i], err)
	}
	return id, nil
}
