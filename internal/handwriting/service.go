// Package handwriting checks traced characters: it validates the canvas,
// asks a vision model for a verdict, sanitizes that verdict and records
// the attempt.
package handwriting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/khianthai/khian/internal/ids"
	"github.com/khianthai/khian/internal/imagestore"
	"github.com/khianthai/khian/internal/store"
	"github.com/khianthai/khian/internal/vision"
)

// ErrNoDetection is returned by Detect when the model saw no character.
var ErrNoDetection = errors.New("ไม่สามารถตรวจจับตัวอักษรได้ กรุณาเขียนให้ชัดเจนขึ้น")

const defaultHistoryLimit = 50

// Result is the outcome of SaveAndDetect.
type Result struct {
	Verdict
	AttemptID ids.ID
	Method    string

	// Exactly one of ImageURL and ImageData is set.
	ImageURL  string
	ImageData string
}

// History is one page of a student's attempts.
type History struct {
	Attempts []store.WritingAttempt
	Total    int
	Limit    int
	Offset   int
}

// Service runs the handwriting pipeline.
type Service struct {
	verifier vision.Verifier
	images   imagestore.Store
	attempts store.AttemptRepo
	policy   Policy
}

// NewService creates a handwriting service. images may be nil, in which
// case every attempt keeps its image inline.
func NewService(verifier vision.Verifier, images imagestore.Store, attempts store.AttemptRepo) *Service {
	return &Service{
		verifier: verifier,
		images:   images,
		attempts: attempts,
		policy:   DefaultPolicy(),
	}
}

// WithPolicy replaces the trust-reduction policy.
func (s *Service) WithPolicy(p Policy) *Service {
	s.policy = p
	return s
}

// SaveAndDetect validates the canvas, stores the image, verifies it and
// records the attempt. Image storage failures are logged and the image is
// kept inline on the attempt instead.
func (s *Service) SaveAndDetect(ctx context.Context, studentID ids.ID, imageData, targetWord string) (*Result, error) {
	target, err := requireFields(imageData, targetWord)
	if err != nil {
		return nil, err
	}
	if studentID.IsZero() {
		return nil, invalid(CodeMissingStudent)
	}
	sub, err := decodeDataURL(imageData, target)
	if err != nil {
		return nil, err
	}

	var ref *imagestore.Ref
	if s.images != nil {
		ref, err = s.images.Save(ctx, studentID, sub.target, sub.image.Data)
		if err != nil {
			slog.Warn("image storage failed, keeping image inline",
				"err", err, "student", studentID, "target", sub.target)
			ref = nil
		}
	}

	raw, err := s.verifier.Detect(ctx, sub.image, sub.target)
	if err != nil {
		return nil, err
	}
	v := s.policy.Apply(*raw, sub.target)

	attempt := &store.WritingAttempt{
		StudentID:    studentID,
		TargetWord:   sub.target,
		DetectedText: v.DetectedText,
		IsCorrect:    v.IsCorrect,
		Confidence:   float64(v.Confidence),
		Explanation:  v.Explanation,
		Method:       s.verifier.Method(),
	}
	if ref != nil {
		attempt.ImagePath = ref.Path
		attempt.ImageURL = ref.URL
	} else {
		attempt.ImageData = sub.dataURL
	}
	if err := s.attempts.CreateWritingAttempt(ctx, attempt); err != nil {
		return nil, fmt.Errorf("save writing attempt: %w", err)
	}

	slog.Info("handwriting checked",
		"student", studentID, "target", sub.target, "correct", v.IsCorrect,
		"confidence", v.Confidence, "rejections", v.Rejections)

	return &Result{
		Verdict:   v,
		AttemptID: attempt.ID,
		Method:    attempt.Method,
		ImageURL:  attempt.ImageURL,
		ImageData: attempt.ImageData,
	}, nil
}

// Detect verifies a canvas without storing anything.
func (s *Service) Detect(ctx context.Context, imageData, targetWord string) (*Verdict, error) {
	sub, err := parseSubmission(imageData, targetWord)
	if err != nil {
		return nil, err
	}

	raw, err := s.verifier.Detect(ctx, sub.image, sub.target)
	if err != nil {
		return nil, err
	}
	v := s.policy.Apply(*raw, sub.target)
	if normalize(v.DetectedText) == "" {
		return nil, ErrNoDetection
	}
	return &v, nil
}

// History returns a student's attempts newest first. A non-positive limit
// means the default page size.
func (s *Service) History(ctx context.Context, studentID ids.ID, limit, offset int) (*History, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	offset = max(offset, 0)

	attempts, err := s.attempts.ListWritingAttempts(ctx, studentID, store.QueryOpts{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	total, err := s.attempts.CountWritingAttempts(ctx, studentID)
	if err != nil {
		return nil, err
	}

	return &History{Attempts: attempts, Total: total, Limit: limit, Offset: offset}, nil
}
