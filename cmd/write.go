package cmd

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khianthai/khian/internal/handwriting"
	"github.com/khianthai/khian/internal/imagestore"
	"github.com/khianthai/khian/internal/llm"
	"github.com/khianthai/khian/internal/store"
	"github.com/khianthai/khian/internal/vision"
)

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Handwriting checks",
}

var writeCheckCmd = &cobra.Command{
	Use:   "check <image-file>",
	Short: "Check a handwriting canvas against a target word",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, _ := cmd.Flags().GetString("target")
		detectOnly, _ := cmd.Flags().GetBool("detect-only")

		dataURL, err := readDataURL(args[0])
		if err != nil {
			return err
		}

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		svc, err := handwritingService(cmd, s)
		if err != nil {
			return err
		}

		if detectOnly {
			v, err := svc.Detect(cmd.Context(), dataURL, target)
			if err != nil {
				return userError(err)
			}
			printVerdict(v)
			return nil
		}

		student, err := idFlag(cmd, "student")
		if err != nil {
			return err
		}
		res, err := svc.SaveAndDetect(cmd.Context(), student, dataURL, target)
		if err != nil {
			return userError(err)
		}
		printVerdict(&res.Verdict)
		fmt.Printf("Method:     %s\n", res.Method)
		fmt.Printf("Attempt:    %s\n", res.AttemptID)
		if res.ImageURL != "" {
			fmt.Printf("Image:      %s\n", res.ImageURL)
		} else {
			fmt.Println("Image:      (kept inline)")
		}
		return nil
	},
}

func handwritingService(cmd *cobra.Command, s *store.Store) (*handwriting.Service, error) {
	cfg, err := llm.ResolveConfig()
	if err != nil {
		return nil, fmt.Errorf("vision provider not configured: %w", err)
	}
	provider, err := llm.NewProvider(cmd.Context(), cfg, s.EventRepo())
	if err != nil {
		return nil, err
	}
	vcfg := vision.DefaultConfig()
	vcfg.Provider = cfg.Provider
	verifier := vision.NewLLMVerifier(provider, vcfg)

	var images imagestore.Store
	if noSave, _ := cmd.Flags().GetBool("no-save"); !noSave {
		images = imagestore.NewDiskStore(imagestore.ConfigFromEnv())
	}
	return handwriting.NewService(verifier, images, s.AttemptRepo()), nil
}

// readDataURL loads an image file as a base64 data URL.
func readDataURL(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	mime := http.DetectContentType(b)
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(b), nil
}

// userError surfaces the Thai message for validation and detection
// failures.
func userError(err error) error {
	var verr *handwriting.ValidationError
	if errors.As(err, &verr) {
		return fmt.Errorf("%s (%s)", verr.Message, verr.Code)
	}
	var derr *vision.DetectionError
	if errors.As(err, &derr) {
		return fmt.Errorf("%s (%s: %w)", derr.UserMessage(), derr.Kind, derr.Err)
	}
	return err
}

func printVerdict(v *handwriting.Verdict) {
	result := "✗ incorrect"
	if v.IsCorrect {
		result = "✓ correct"
	}
	fmt.Printf("Target:     %s\n", v.TargetWord)
	fmt.Printf("Detected:   %s\n", v.DetectedText)
	fmt.Printf("Result:     %s (confidence %d)\n", result, v.Confidence)
	fmt.Printf("Feedback:   %s\n", v.Explanation)
	if len(v.Rejections) > 0 {
		names := make([]string, len(v.Rejections))
		for i, r := range v.Rejections {
			names[i] = string(r)
		}
		fmt.Printf("Rejections: %s\n", strings.Join(names, ", "))
	}
}

var writeHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List a student's handwriting attempts",
	RunE: func(cmd *cobra.Command, args []string) error {
		student, err := idFlag(cmd, "student")
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		s, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		h, err := handwriting.NewService(nil, nil, s.AttemptRepo()).History(cmd.Context(), student, limit, offset)
		if err != nil {
			return err
		}
		if len(h.Attempts) == 0 {
			fmt.Println("No handwriting attempts found.")
			return nil
		}

		fmt.Printf("%-19s  %-16s  %-16s  %-4s  %-5s  %s\n", "Time", "Target", "Detected", "OK", "Conf", "Method")
		fmt.Println(strings.Repeat("─", 80))
		for _, a := range h.Attempts {
			ok := "✗"
			if a.IsCorrect {
				ok = "✓"
			}
			fmt.Printf("%-19s  %-16s  %-16s  %-4s  %-5.0f  %s\n",
				a.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				truncate(a.TargetWord, 16), truncate(a.DetectedText, 16), ok, a.Confidence, a.Method)
		}
		fmt.Printf("\nShowing %d-%d of %d\n", h.Offset+1, h.Offset+len(h.Attempts), h.Total)
		return nil
	},
}

func init() {
	writeCheckCmd.Flags().String("student", "", "Student ID (not needed with --detect-only)")
	writeCheckCmd.Flags().String("target", "", "Target word the student traced")
	writeCheckCmd.Flags().Bool("detect-only", false, "Only detect, without storing an attempt")
	writeCheckCmd.Flags().Bool("no-save", false, "Keep the image inline instead of writing it to the upload directory")

	writeHistoryCmd.Flags().String("student", "", "Student ID")
	writeHistoryCmd.Flags().IntP("limit", "n", 50, "Number of attempts to show")
	writeHistoryCmd.Flags().Int("offset", 0, "Attempts to skip")

	writeCmd.AddCommand(writeCheckCmd)
	writeCmd.AddCommand(writeHistoryCmd)
}
