package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/khianthai/khian/internal/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database and content migrations",
}

var migratePathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Rewrite legacy asset paths in lessons, questions and games",
	RunE: func(cmd *cobra.Command, args []string) error {
		m := migrate.DefaultPathMigration()
		if from, _ := cmd.Flags().GetStringSlice("from"); len(from) > 0 {
			m.From = from
		}
		if to, _ := cmd.Flags().GetString("to"); to != "" {
			m.To = to
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		report, err := m.Run(cmd.Context(), s.CurriculumRepo())
		if err != nil {
			return fmt.Errorf("migrate paths: %w", err)
		}
		if report.Total() == 0 {
			fmt.Println("Nothing to rewrite.")
			return nil
		}
		fmt.Printf("Rewrote %d lessons, %d questions, %d games\n", report.Lessons, report.Questions, report.Games)
		return nil
	},
}

func init() {
	migratePathsCmd.Flags().StringSlice("from", nil, "Legacy path prefixes (default: the old vocabulary folders)")
	migratePathsCmd.Flags().String("to", "", "Replacement path prefix")
	migrateCmd.AddCommand(migratePathsCmd)
}
