package handwriting

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/khianthai/khian/internal/vision"
)

// Rejection names the check that turned a verdict down.
type Rejection string

const (
	RejectJunk          Rejection = "junk"
	RejectMismatch      Rejection = "mismatch"
	RejectLowConfidence Rejection = "low-confidence"
	RejectTracingIssue  Rejection = "tracing-issue"
	RejectNoTracingCue  Rejection = "no-tracing-cue"
	RejectFloor         Rejection = "confidence-floor"
)

// Verdict is the sanitized result shown to the student.
type Verdict struct {
	DetectedText string
	TargetWord   string
	IsCorrect    bool
	Confidence   int
	Explanation  string

	// Rejections lists the checks that fired, in order.
	Rejections []Rejection
}

// Rejected reports whether check r fired.
func (v *Verdict) Rejected(r Rejection) bool {
	return slices.Contains(v.Rejections, r)
}

// reject marks the verdict incorrect and lowers confidence to at most
// limit. It never raises confidence.
func (v *Verdict) reject(r Rejection, limit int) {
	v.IsCorrect = false
	v.Confidence = min(v.Confidence, limit)
	v.Rejections = append(v.Rejections, r)
}

// Canned messages for rejected verdicts.
const (
	msgMessy         = "ลองเขียนตามเส้นประให้ชัดเจนขึ้นนะ"
	msgLowConfidence = "ลองเขียนให้ใกล้เส้นประมากขึ้น พยายามอีกนิดนะ"
	msgDefault       = "กรุณาเขียนตามเส้นประให้ถูกต้อง"
)

func mismatchMessage(detected, target string) string {
	return fmt.Sprintf("เขียนได้ \"%s\" แต่ควรเขียน \"%s\" ลองเขียนให้ตรงกับอักษรที่กำหนด", detected, target)
}

// Policy reduces trust in a raw model verdict. Every check can only turn a
// correct verdict incorrect or lower its confidence.
type Policy struct {
	// JunkText matches detected text that describes a shape rather than a
	// character.
	JunkText *regexp.Regexp
	// JunkExplanation matches explanations that describe a doodle.
	JunkExplanation *regexp.Regexp
	// MaxExtraRunes is how much longer than the target the detected text
	// may be before it counts as junk.
	MaxExtraRunes int

	NegativeCues []string
	PositiveCues []string

	MinConfidence     int // claims below this are rejected
	TrustedConfidence int // claims at or above this need no positive cue
	Floor             int // anything below this is incorrect

	JunkCap     int
	MismatchCap int
	LowConfCap  int
	TracingCap  int
	NoCueCap    int
}

// DefaultPolicy returns the production thresholds.
func DefaultPolicy() Policy {
	return Policy{
		JunkText:        regexp.MustCompile(`(?i)(random|scribble|circle|line|doodle|shape)`),
		JunkExplanation: regexp.MustCompile(`(?i)(random|scribble|doodle)`),
		MaxExtraRunes:   3,
		NegativeCues: []string{
			"messy", "scribble", "scribbles", "ไม่ทับ", "นอกกรอบ", "เขียนนอก", "เขียนมั่ว",
			"ไม่ตาม", "ไม่ตรง", "ห่าง", "gap", "random", "messed", "zig", "zag", "ซิกแซก",
			"หลายเส้น", "ทับกัน", "ระบาย", "coloring", "thick", "หนาเกิน",
		},
		PositiveCues:      []string{"ทับเส้นประ", "ตามเส้น", "ชัดเจน", "เส้นเดียว", "ดีมาก", "ถูกต้อง"},
		MinConfidence:     80,
		TrustedConfidence: 90,
		Floor:             40,
		JunkCap:           30,
		MismatchCap:       40,
		LowConfCap:        50,
		TracingCap:        30,
		NoCueCap:          40,
	}
}

// Apply sanitizes raw against target.
func (p Policy) Apply(raw vision.RawVerdict, target string) Verdict {
	v := Verdict{
		DetectedText: strings.TrimSpace(raw.DetectedText),
		TargetWord:   target,
		IsCorrect:    raw.IsCorrect,
		Confidence:   min(100, max(0, raw.Confidence)),
		Explanation:  raw.Explanation,
	}

	detected := normalize(raw.DetectedText)
	want := normalize(target)
	match := detected != "" && detected == want
	explanation := normalize(raw.Explanation)

	junk := p.JunkText.MatchString(detected) ||
		p.JunkExplanation.MatchString(explanation) ||
		runeLen(detected) > runeLen(want)+p.MaxExtraRunes
	if junk {
		v.reject(RejectJunk, p.JunkCap)
	}

	if v.IsCorrect {
		// Thresholds use the claimed confidence, not earlier caps.
		claimed := v.Confidence
		if !match {
			v.reject(RejectMismatch, p.MismatchCap)
		}
		if claimed < p.MinConfidence {
			v.reject(RejectLowConfidence, p.LowConfCap)
		}
		if containsAny(explanation, p.NegativeCues) {
			v.reject(RejectTracingIssue, p.TracingCap)
		}
		if claimed < p.TrustedConfidence && !containsAny(explanation, p.PositiveCues) {
			v.reject(RejectNoTracingCue, p.NoCueCap)
		}
	}

	if v.Confidence < p.Floor && v.IsCorrect {
		v.reject(RejectFloor, v.Confidence)
	}

	if !v.IsCorrect {
		v.Explanation = p.message(v, match, junk, raw.Confidence)
	}
	return v
}

// message picks the canned explanation for a rejected verdict.
func (p Policy) message(v Verdict, match, junk bool, rawConfidence int) string {
	switch {
	case !match && !junk && v.DetectedText != "":
		return mismatchMessage(v.DetectedText, v.TargetWord)
	case junk || v.Confidence < 50 || v.DetectedText == "":
		return msgMessy
	case rawConfidence < p.MinConfidence:
		return msgLowConfidence
	case strings.TrimSpace(v.Explanation) != "":
		return v.Explanation
	default:
		return msgDefault
	}
}

func containsAny(s string, cues []string) bool {
	for _, c := range cues {
		if strings.Contains(s, c) {
			return true
		}
	}
	return false
}
