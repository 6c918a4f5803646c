package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/khianthai/khian/internal/grading"
	"github.com/khianthai/khian/internal/ids"
	"github.com/khianthai/khian/internal/notify"
	"github.com/khianthai/khian/internal/store"
)

func gradingEngine(s *store.Store) *grading.Engine {
	return grading.NewEngine(s.CurriculumRepo(), s.AttemptRepo(), notify.NewService(s.NotificationRepo()))
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Pre- and post-test submissions",
}

var testSubmitCmd = &cobra.Command{
	Use:   "submit <test-id>",
	Short: "Grade a test submission",
	Long: `Grade a test submission. --answers is a JSON object mapping question IDs
to an option index, or to a list of indices for multi-select questions:

  khian test submit <test-id> --student s1 --answers '{"q1": 0, "q2": [1, 3]}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		student, err := idFlag(cmd, "student")
		if err != nil {
			return err
		}
		test, err := idArg(args, 0, "test ID")
		if err != nil {
			return err
		}
		raw, _ := cmd.Flags().GetString("answers")
		answers, err := parseAnswers(raw)
		if err != nil {
			return err
		}
		timeSpent, _ := cmd.Flags().GetInt("time")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := gradingEngine(s).SubmitTest(cmd.Context(), grading.SubmitTestInput{
			StudentID: student,
			TestID:    test,
			Answers:   answers,
			TimeSpent: timeSpent,
		})
		if err != nil {
			return err
		}

		result := "not passed"
		if res.IsPassed {
			result = "passed"
		}
		fmt.Printf("Attempt %d: %d/%d correct, score %d%% (%s)\n",
			res.AttemptNumber, res.CorrectAnswers, res.TotalQuestions, res.Score, result)
		if res.Stars > 0 {
			fmt.Printf("Stars: %d\n", res.Stars)
		}
		return nil
	},
}

// parseAnswers decodes a question-ID to answer JSON object.
func parseAnswers(raw string) (map[ids.ID]store.Answer, error) {
	if raw == "" {
		return nil, nil
	}
	var byKey map[string]store.Answer
	if err := json.Unmarshal([]byte(raw), &byKey); err != nil {
		return nil, fmt.Errorf("--answers: %w", err)
	}
	answers := make(map[ids.ID]store.Answer, len(byKey))
	for k, a := range byKey {
		id, err := ids.Parse(k)
		if err != nil {
			return nil, fmt.Errorf("--answers: question %q: %w", k, err)
		}
		answers[id] = a
	}
	return answers, nil
}

var gameCmd = &cobra.Command{
	Use:   "game",
	Short: "Practice game results",
}

var gameSubmitCmd = &cobra.Command{
	Use:   "submit <game-id>",
	Short: "Record a game result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		student, err := idFlag(cmd, "student")
		if err != nil {
			return err
		}
		game, err := idArg(args, 0, "game ID")
		if err != nil {
			return err
		}
		in := grading.SubmitGameInput{StudentID: student, GameID: game}
		in.Score, _ = cmd.Flags().GetInt("score")
		in.Level, _ = cmd.Flags().GetInt("level")
		in.TimeSpent, _ = cmd.Flags().GetInt("time")
		if raw, _ := cmd.Flags().GetString("data"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &in.Data); err != nil {
				return fmt.Errorf("--data: %w", err)
			}
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		res, err := gradingEngine(s).SubmitGame(cmd.Context(), in)
		if err != nil {
			return err
		}
		fmt.Printf("Attempt %d: score %d%%, level %d, passed %v\n", res.AttemptNumber, res.Score, res.Level, res.IsPassed)
		return nil
	},
}

func init() {
	testSubmitCmd.Flags().String("student", "", "Student ID")
	testSubmitCmd.Flags().String("answers", "", "Answers as a JSON object of question ID to answer")
	testSubmitCmd.Flags().Int("time", 0, "Time spent in seconds")
	testCmd.AddCommand(testSubmitCmd)

	gameSubmitCmd.Flags().String("student", "", "Student ID")
	gameSubmitCmd.Flags().Int("score", 0, "Score 0-100")
	gameSubmitCmd.Flags().Int("level", 1, "Level reached")
	gameSubmitCmd.Flags().Int("time", 0, "Time spent in seconds")
	gameSubmitCmd.Flags().String("data", "", "Game data as a JSON object")
	gameCmd.AddCommand(gameSubmitCmd)
}
