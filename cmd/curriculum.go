package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/khianthai/khian/internal/curriculum"
)

var curriculumCmd = &cobra.Command{
	Use:   "curriculum",
	Short: "Manage classroom curricula",
}

var curriculumImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import lessons, tests and games from a YAML document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open curriculum: %w", err)
		}
		defer f.Close()

		doc, err := curriculum.Parse(f)
		if err != nil {
			return err
		}
		if check, _ := cmd.Flags().GetBool("check"); check {
			if err := doc.Validate(); err != nil {
				return err
			}
			fmt.Printf("%s: %d lessons, valid\n", args[0], len(doc.Lessons))
			return nil
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := curriculum.Import(cmd.Context(), s.CurriculumRepo(), doc)
		if err != nil {
			return err
		}
		fmt.Printf("Classroom %s: %d lessons, %d tests (%d questions), %d games\n",
			res.ClassroomID, len(res.Lessons), len(res.Tests), res.Questions, len(res.Games))
		return nil
	},
}

func init() {
	curriculumImportCmd.Flags().Bool("check", false, "Validate the document without importing")
	curriculumCmd.AddCommand(curriculumImportCmd)
}
