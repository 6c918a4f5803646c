package handwriting

import (
	"testing"

	"github.com/khianthai/khian/internal/vision"
)

func TestPolicy_Apply(t *testing.T) {
	tests := []struct {
		name           string
		raw            vision.RawVerdict
		target         string
		wantCorrect    bool
		wantMaxConf    int
		wantRejections []Rejection
		wantMessage    string
	}{
		{
			name:        "clean trace accepted",
			raw:         vision.RawVerdict{DetectedText: "ก", IsCorrect: true, Confidence: 85, Explanation: "ทับเส้นประชัดเจน"},
			target:      "ก",
			wantCorrect: true,
			wantMaxConf: 85,
			wantMessage: "ทับเส้นประชัดเจน",
		},
		{
			name:           "negative cue beats high confidence",
			raw:            vision.RawVerdict{DetectedText: "ก", IsCorrect: true, Confidence: 95, Explanation: "เขียนมั่ว เส้นซิกแซก"},
			target:         "ก",
			wantMaxConf:    30,
			wantRejections: []Rejection{RejectTracingIssue},
			wantMessage:    msgMessy,
		},
		{
			name:           "character mismatch",
			raw:            vision.RawVerdict{DetectedText: "ข", IsCorrect: true, Confidence: 92, Explanation: "เขียนได้ดีมาก"},
			target:         "ก",
			wantMaxConf:    40,
			wantRejections: []Rejection{RejectMismatch},
			wantMessage:    `เขียนได้ "ข" แต่ควรเขียน "ก" ลองเขียนให้ตรงกับอักษรที่กำหนด`,
		},
		{
			name:           "claim below threshold",
			raw:            vision.RawVerdict{DetectedText: "ก", IsCorrect: true, Confidence: 70, Explanation: "ตามเส้นประ"},
			target:         "ก",
			wantMaxConf:    50,
			wantRejections: []Rejection{RejectLowConfidence},
			wantMessage:    msgLowConfidence,
		},
		{
			name:           "no positive cue under trusted confidence",
			raw:            vision.RawVerdict{DetectedText: "ก", IsCorrect: true, Confidence: 85, Explanation: "ok"},
			target:         "ก",
			wantMaxConf:    40,
			wantRejections: []Rejection{RejectNoTracingCue},
			wantMessage:    msgMessy,
		},
		{
			name:        "trusted confidence needs no cue",
			raw:         vision.RawVerdict{DetectedText: "ก", IsCorrect: true, Confidence: 93, Explanation: "ok"},
			target:      "ก",
			wantCorrect: true,
			wantMaxConf: 93,
			wantMessage: "ok",
		},
		{
			name:           "junk label",
			raw:            vision.RawVerdict{DetectedText: "random scribble", IsCorrect: true, Confidence: 90, Explanation: "ถูกต้อง"},
			target:         "ก",
			wantMaxConf:    30,
			wantRejections: []Rejection{RejectJunk},
			wantMessage:    msgMessy,
		},
		{
			name:           "detected text far longer than target",
			raw:            vision.RawVerdict{DetectedText: "กขคงจ", IsCorrect: false, Confidence: 60},
			target:         "ก",
			wantMaxConf:    30,
			wantRejections: []Rejection{RejectJunk},
			wantMessage:    msgMessy,
		},
		{
			name:           "doodle in explanation",
			raw:            vision.RawVerdict{DetectedText: "ก", IsCorrect: true, Confidence: 95, Explanation: "looks like a doodle"},
			target:         "ก",
			wantMaxConf:    30,
			wantRejections: []Rejection{RejectJunk},
			wantMessage:    msgMessy,
		},
		{
			name:        "model already said no",
			raw:         vision.RawVerdict{DetectedText: "ก", IsCorrect: false, Confidence: 65, Explanation: "ลองอีกครั้ง"},
			target:      "ก",
			wantMaxConf: 65,
			wantMessage: msgLowConfidence,
		},
		{
			name:        "case and spacing ignored",
			raw:         vision.RawVerdict{DetectedText: " A ", IsCorrect: true, Confidence: 91, Explanation: "clean"},
			target:      "a",
			wantCorrect: true,
			wantMaxConf: 91,
			wantMessage: "clean",
		},
	}

	p := DefaultPolicy()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Apply(tt.raw, tt.target)

			if got.IsCorrect != tt.wantCorrect {
				t.Fatalf("IsCorrect = %v, want %v (rejections %v)", got.IsCorrect, tt.wantCorrect, got.Rejections)
			}
			if got.Confidence > tt.wantMaxConf {
				t.Fatalf("Confidence = %d, want <= %d", got.Confidence, tt.wantMaxConf)
			}
			if len(got.Rejections) != len(tt.wantRejections) {
				t.Fatalf("Rejections = %v, want %v", got.Rejections, tt.wantRejections)
			}
			for i, r := range tt.wantRejections {
				if got.Rejections[i] != r {
					t.Fatalf("Rejections = %v, want %v", got.Rejections, tt.wantRejections)
				}
			}
			if got.Explanation != tt.wantMessage {
				t.Fatalf("Explanation = %q, want %q", got.Explanation, tt.wantMessage)
			}
		})
	}
}

func TestPolicy_NeverRaisesTrust(t *testing.T) {
	p := DefaultPolicy()
	explanations := []string{"", "ทับเส้นประ", "messy", "doodle", "เส้นเดียว ชัดเจน"}
	detections := []string{"", "ก", "ข", "circle", "กขคงจฉ"}

	for _, det := range detections {
		for _, exp := range explanations {
			for _, claimed := range []bool{true, false} {
				for conf := 0; conf <= 100; conf += 5 {
					raw := vision.RawVerdict{DetectedText: det, IsCorrect: claimed, Confidence: conf, Explanation: exp}
					got := p.Apply(raw, "ก")

					if got.IsCorrect && !claimed {
						t.Fatalf("rescued a rejected verdict: %+v", raw)
					}
					if got.Confidence > conf {
						t.Fatalf("raised confidence %d -> %d: %+v", conf, got.Confidence, raw)
					}
					if got.Confidence < 40 && got.IsCorrect {
						t.Fatalf("correct below floor: %+v -> %+v", raw, got)
					}
					if claimed && det != "ก" && got.IsCorrect {
						t.Fatalf("accepted a mismatch: %+v", raw)
					}
				}
			}
		}
	}
}

func TestNormalize(t *testing.T) {
	if normalize("e\u0301") != normalize("\u00e9") {
		t.Fatal("decomposed and composed forms differ after normalization")
	}
	if normalize("  ABC ") != "abc" {
		t.Fatalf("normalize folded to %q", normalize("  ABC "))
	}
	if runeLen("ที่") != 3 {
		t.Fatalf("runeLen(ที่) = %d", runeLen("ที่"))
	}
}
