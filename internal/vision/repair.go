package vision

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/khianthai/khian/internal/llm"
)

const fallbackExplanation = "เกิดข้อผิดพลาดในการประมวลผล"

var (
	errNoObject = errors.New("no JSON object in model output")
	errNoFields = errors.New("no verdict fields in model output")

	fences = strings.NewReplacer("```json", "", "```", "")

	detectedField    = regexp.MustCompile(`"detected"\s*:\s*"([^"]*)"`)
	isCorrectField   = regexp.MustCompile(`"isCorrect"\s*:\s*(true|false)`)
	confidenceField  = regexp.MustCompile(`"confidence"\s*:\s*(\d+)`)
	explanationField = regexp.MustCompile(`"explanation"\s*:\s*"([^"]*)"`)
)

// repair reads a verdict out of malformed or truncated model output. It
// strips markdown fences, closes an unterminated object and falls back to
// field-by-field extraction.
func repair(raw []byte) (*verdictOutput, error) {
	text := strings.TrimSpace(fences.Replace(string(raw)))
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil, errNoObject
	}
	text = closeObject(text[start:])

	var out verdictOutput
	if err := llm.ValidateContent(VerdictSchema, json.RawMessage(text)); err == nil {
		if err := json.Unmarshal([]byte(text), &out); err == nil {
			return &out, nil
		}
	}

	return extractFields(text)
}

// closeObject terminates a truncated JSON object: an open string gets its
// closing quote, a dangling comma is dropped and missing braces are added.
func closeObject(s string) string {
	if strings.HasSuffix(s, "}") {
		return s
	}

	depth := 0
	inString := false
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && inString:
			escaped = true
		case r == '"':
			inString = !inString
		case r == '{' && !inString:
			depth++
		case r == '}' && !inString:
			depth--
		}
	}

	var b strings.Builder
	b.WriteString(s)
	if inString {
		b.WriteByte('"')
	}
	out := strings.TrimRight(b.String(), " \t\r\n,")
	for ; depth > 0; depth-- {
		out += "}"
	}
	return out
}

func extractFields(text string) (*verdictOutput, error) {
	out := verdictOutput{Explanation: fallbackExplanation}
	found := false

	if m := detectedField.FindStringSubmatch(text); m != nil {
		out.Detected = m[1]
		found = true
	}
	if m := isCorrectField.FindStringSubmatch(text); m != nil {
		out.IsCorrect = m[1] == "true"
		found = true
	}
	if !found {
		return nil, errNoFields
	}
	if m := confidenceField.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			out.Confidence = n
		}
	}
	if m := explanationField.FindStringSubmatch(text); m != nil {
		out.Explanation = m[1]
	}
	return &out, nil
}
