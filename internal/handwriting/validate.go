package handwriting

import (
	"encoding/base64"
	"strings"

	"github.com/khianthai/khian/internal/llm"
)

// minPayloadChars is the shortest base64 payload that can hold a stroke.
// Blank canvases encode below it.
const minPayloadChars = 100

// ValidationCode identifies a rejected submission.
type ValidationCode string

const (
	CodeMissingImage   ValidationCode = "missing-image"
	CodeMissingTarget  ValidationCode = "missing-target"
	CodeMissingStudent ValidationCode = "missing-student"
	CodeInvalidFormat  ValidationCode = "invalid-format"
	CodeEmptyCanvas    ValidationCode = "empty-canvas"
)

// ValidationError is returned before any storage or model call is made.
type ValidationError struct {
	Code    ValidationCode
	Message string // Thai, shown to the student
}

func (e *ValidationError) Error() string {
	return string(e.Code) + ": " + e.Message
}

var validationMessages = map[ValidationCode]string{
	CodeMissingImage:   "กรุณาส่งรูปภาพ",
	CodeMissingTarget:  "กรุณาระบุคำที่ต้องการตรวจสอบ",
	CodeMissingStudent: "ไม่พบข้อมูลนักเรียน",
	CodeInvalidFormat:  "รูปแบบรูปภาพไม่ถูกต้อง",
	CodeEmptyCanvas:    "กรุณาเขียนอักษรบนกระดานก่อนตรวจสอบ",
}

func invalid(code ValidationCode) *ValidationError {
	return &ValidationError{Code: code, Message: validationMessages[code]}
}

// submission is a validated canvas upload.
type submission struct {
	dataURL string
	image   llm.Image
	target  string
}

// parseSubmission checks a canvas upload. The order of checks decides
// which message the student sees when several apply.
func parseSubmission(imageData, target string) (*submission, error) {
	target, err := requireFields(imageData, target)
	if err != nil {
		return nil, err
	}
	return decodeDataURL(imageData, target)
}

// requireFields checks presence only and returns the trimmed target.
func requireFields(imageData, target string) (string, error) {
	if imageData == "" {
		return "", invalid(CodeMissingImage)
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return "", invalid(CodeMissingTarget)
	}
	return target, nil
}

func decodeDataURL(imageData, target string) (*submission, error) {
	if !strings.HasPrefix(imageData, "data:image/") {
		return nil, invalid(CodeInvalidFormat)
	}
	header, payload, _ := strings.Cut(imageData, ",")
	if len(payload) < minPayloadChars {
		return nil, invalid(CodeEmptyCanvas)
	}

	mime, _, _ := strings.Cut(strings.TrimPrefix(header, "data:"), ";")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, invalid(CodeInvalidFormat)
	}

	return &submission{
		dataURL: imageData,
		image:   llm.Image{MIMEType: mime, Data: data},
		target:  target,
	}, nil
}
