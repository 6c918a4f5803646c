package vision

import (
	"errors"
	"fmt"

	"github.com/khianthai/khian/internal/llm"
)

// ErrorKind classifies a failed detection.
type ErrorKind string

const (
	KindAuth      ErrorKind = "auth"
	KindQuota     ErrorKind = "quota"
	KindTransient ErrorKind = "transient"
	KindParse     ErrorKind = "parse"
)

// DetectionError is returned by Verifier implementations when the model
// could not produce a verdict.
type DetectionError struct {
	Kind ErrorKind
	Err  error
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("handwriting detection failed (%s): %v", e.Kind, e.Err)
}

func (e *DetectionError) Unwrap() error { return e.Err }

// UserMessage returns the Thai message shown to the student.
func (e *DetectionError) UserMessage() string {
	switch e.Kind {
	case KindAuth:
		return "ระบบตรวจลายมือยังไม่พร้อมใช้งาน กรุณาแจ้งครูผู้สอน"
	case KindQuota:
		return "มีผู้ใช้งานระบบตรวจลายมือจำนวนมาก กรุณาลองใหม่ภายหลัง"
	case KindParse:
		return "ระบบอ่านผลการตรวจไม่สำเร็จ กรุณาลองใหม่อีกครั้ง"
	default:
		return "ไม่สามารถเชื่อมต่อระบบตรวจลายมือได้ กรุณาลองใหม่อีกครั้ง"
	}
}

// Retryable reports whether trying again later may succeed.
func (e *DetectionError) Retryable() bool {
	return e.Kind != KindAuth
}

// Classify maps an error from the llm layer to a *DetectionError.
func Classify(err error) *DetectionError {
	if err == nil {
		return nil
	}

	var de *DetectionError
	if errors.As(err, &de) {
		return de
	}

	var auth *llm.ErrAuth
	var rl *llm.ErrRateLimit
	var inv *llm.ErrInvalidResponse
	var maxTok *llm.ErrMaxTokensExceeded
	switch {
	case errors.As(err, &auth):
		return &DetectionError{Kind: KindAuth, Err: err}
	case errors.As(err, &rl):
		return &DetectionError{Kind: KindQuota, Err: err}
	case errors.As(err, &inv), errors.As(err, &maxTok):
		return &DetectionError{Kind: KindParse, Err: err}
	default:
		// Timeouts, cancellation and unreachable providers.
		return &DetectionError{Kind: KindTransient, Err: err}
	}
}
