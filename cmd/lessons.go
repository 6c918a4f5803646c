package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khianthai/khian/internal/notify"
	"github.com/khianthai/khian/internal/progression"
	"github.com/khianthai/khian/internal/store"
)

func progressionService(s *store.Store) *progression.Service {
	return progression.NewService(s.CurriculumRepo(), s.ProgressRepo(), s.AttemptRepo(), notify.NewService(s.NotificationRepo()))
}

var lessonsCmd = &cobra.Command{
	Use:   "lessons",
	Short: "List a classroom's lessons with the student's state",
	RunE: func(cmd *cobra.Command, args []string) error {
		student, err := idFlag(cmd, "student")
		if err != nil {
			return err
		}
		classroom, err := idFlag(cmd, "classroom")
		if err != nil {
			return err
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		views, err := progressionService(s).ComputeLessonStates(cmd.Context(), student, classroom)
		if err != nil {
			return fmt.Errorf("compute lesson states: %w", err)
		}
		if len(views) == 0 {
			fmt.Println("No active lessons.")
			return nil
		}

		fmt.Printf("%-5s  %-16s  %-16s  %-30s  %-7s  %-7s  %s\n",
			"Order", "Status", "Chapter", "Title", "Pre", "Post", "Games")
		fmt.Println(strings.Repeat("─", 100))
		for _, v := range views {
			passed := 0
			for _, g := range v.Games {
				if g.Passed {
					passed++
				}
			}
			fmt.Printf("%-5d  %-16s  %-16s  %-30s  %-7s  %-7s  %d/%d\n",
				v.OrderIndex, v.Status, truncate(v.Chapter, 16), truncate(v.Title, 30),
				testMark(v.PreTest), testMark(v.PostTest), passed, len(v.Games))
		}
		return nil
	},
}

func testMark(t *progression.TestSummary) string {
	switch {
	case t == nil:
		return "-"
	case t.Completed():
		return "✓"
	default:
		return "·"
	}
}

var completeCmd = &cobra.Command{
	Use:   "complete <lesson-id>",
	Short: "Mark a lesson completed for a student",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		student, err := idFlag(cmd, "student")
		if err != nil {
			return err
		}
		lesson, err := idArg(args, 0, "lesson ID")
		if err != nil {
			return err
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		p, err := progressionService(s).CompleteLesson(cmd.Context(), student, lesson)
		if err != nil {
			return err
		}
		fmt.Printf("Lesson %s completed at %s\n", lesson, p.CompletedAt.Local().Format("2006-01-02 15:04:05"))
		return nil
	},
}

var activityCmd = &cobra.Command{
	Use:   "activity <lesson-id> <activity-id>",
	Short: "Record an in-lesson activity result",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		student, err := idFlag(cmd, "student")
		if err != nil {
			return err
		}
		lesson, err := idArg(args, 0, "lesson ID")
		if err != nil {
			return err
		}

		in := progression.ActivityInput{ActivityID: args[1]}
		in.IsCorrect, _ = cmd.Flags().GetBool("correct")
		in.TimeSpent, _ = cmd.Flags().GetInt("time")
		if cmd.Flags().Changed("score") {
			score, _ := cmd.Flags().GetInt("score")
			in.Score = &score
		}
		if raw, _ := cmd.Flags().GetString("answer"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &in.Answer); err != nil {
				in.Answer = raw
			}
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		r, err := progressionService(s).SubmitActivity(cmd.Context(), student, lesson, in)
		if err != nil {
			return err
		}
		fmt.Printf("Activity %s recorded: score %d\n", r.ActivityID, r.Score)
		return nil
	},
}

var pretestCmd = &cobra.Command{
	Use:   "pretest <lesson-id>",
	Short: "Show whether a lesson's pre-test blocks it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		student, err := idFlag(cmd, "student")
		if err != nil {
			return err
		}
		lesson, err := idArg(args, 0, "lesson ID")
		if err != nil {
			return err
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		st, err := progressionService(s).PreTestStatus(cmd.Context(), student, lesson)
		if err != nil {
			return err
		}
		if !st.HasPreTest {
			fmt.Println("No pre-test. Lesson is open.")
			return nil
		}
		fmt.Printf("Pre-test:   %s (%s)\n", st.Title, st.TestID)
		fmt.Printf("Completed:  %v\n", st.Completed)
		fmt.Printf("Can access: %v\n", st.CanAccessLesson)
		return nil
	},
}

var posttestCmd = &cobra.Command{
	Use:   "posttest <lesson-id>",
	Short: "Show a lesson's post-test state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		student, err := idFlag(cmd, "student")
		if err != nil {
			return err
		}
		lesson, err := idArg(args, 0, "lesson ID")
		if err != nil {
			return err
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		st, err := progressionService(s).PostTestStatus(cmd.Context(), student, lesson)
		if err != nil {
			return err
		}
		if !st.HasPostTest {
			fmt.Printf("No post-test. Lesson completed: %v\n", st.Unlocked)
			return nil
		}
		fmt.Printf("Post-test:  %s (%s)\n", st.Title, st.TestID)
		fmt.Printf("Unlocked:   %v\n", st.Unlocked)
		fmt.Printf("Completed:  %v\n", st.Completed)
		return nil
	},
}

func init() {
	lessonsCmd.Flags().String("classroom", "", "Classroom ID")
	for _, c := range []*cobra.Command{lessonsCmd, completeCmd, activityCmd, pretestCmd, posttestCmd} {
		c.Flags().String("student", "", "Student ID")
	}

	activityCmd.Flags().Bool("correct", false, "Whether the activity was answered correctly")
	activityCmd.Flags().Int("score", 0, "Score 0-100 (defaults to 100 or 0 from --correct)")
	activityCmd.Flags().Int("time", 0, "Time spent in seconds")
	activityCmd.Flags().String("answer", "", "Submitted answer (JSON or plain text)")
}
