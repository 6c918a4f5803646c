package handwriting

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khianthai/khian/internal/ids"
	"github.com/khianthai/khian/internal/imagestore"
	"github.com/khianthai/khian/internal/llm"
	"github.com/khianthai/khian/internal/store"
	"github.com/khianthai/khian/internal/vision"
)

type fakeVerifier struct {
	verdict *vision.RawVerdict
	err     error
	calls   int
	lastImg llm.Image
}

func (f *fakeVerifier) Detect(_ context.Context, img llm.Image, _ string) (*vision.RawVerdict, error) {
	f.calls++
	f.lastImg = img
	if f.err != nil {
		return nil, f.err
	}
	v := *f.verdict
	return &v, nil
}

func (f *fakeVerifier) Method() string { return vision.MethodGemini }

type fakeImages struct {
	err   error
	calls int
}

func (f *fakeImages) Save(_ context.Context, studentID ids.ID, target string, _ []byte) (*imagestore.Ref, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	name := fmt.Sprintf("writing_%s_%s.png", studentID, target)
	return &imagestore.Ref{Path: "/tmp/" + name, URL: "/uploads/writing/" + name}, nil
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := store.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

var canvas = "data:image/png;base64," + base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0x89, 'P'}, 80))

func goodVerdict() *vision.RawVerdict {
	return &vision.RawVerdict{DetectedText: "ก", IsCorrect: true, Confidence: 85, Explanation: "ทับเส้นประชัดเจน"}
}

func TestSaveAndDetect_StoresImageAndAttempt(t *testing.T) {
	st := openTestStore(t)
	verifier := &fakeVerifier{verdict: goodVerdict()}
	images := &fakeImages{}
	svc := NewService(verifier, images, st.AttemptRepo())
	student := ids.New()

	res, err := svc.SaveAndDetect(context.Background(), student, canvas, "ก")
	require.NoError(t, err)

	assert.True(t, res.IsCorrect)
	assert.Equal(t, 85, res.Confidence)
	assert.Equal(t, vision.MethodGemini, res.Method)
	assert.Contains(t, res.ImageURL, "/uploads/writing/")
	assert.Empty(t, res.ImageData)
	assert.False(t, res.AttemptID.IsZero())
	assert.Equal(t, "image/png", verifier.lastImg.MIMEType)

	saved, err := st.AttemptRepo().ListWritingAttempts(context.Background(), student, store.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, res.AttemptID, saved[0].ID)
	assert.Equal(t, "ก", saved[0].TargetWord)
	assert.Equal(t, float64(85), saved[0].Confidence)
	assert.Equal(t, res.ImageURL, saved[0].ImageURL)
	assert.Empty(t, saved[0].ImageData)
}

func TestSaveAndDetect_StorageFailureKeepsImageInline(t *testing.T) {
	for _, storeErr := range []error{imagestore.ErrUnavailable, context.DeadlineExceeded, errors.New("disk full")} {
		t.Run(storeErr.Error(), func(t *testing.T) {
			st := openTestStore(t)
			svc := NewService(&fakeVerifier{verdict: goodVerdict()}, &fakeImages{err: storeErr}, st.AttemptRepo())
			student := ids.New()

			res, err := svc.SaveAndDetect(context.Background(), student, canvas, "ก")
			require.NoError(t, err)
			assert.Empty(t, res.ImageURL)
			assert.Equal(t, canvas, res.ImageData)

			saved, err := st.AttemptRepo().ListWritingAttempts(context.Background(), student, store.QueryOpts{})
			require.NoError(t, err)
			require.Len(t, saved, 1)
			assert.Equal(t, canvas, saved[0].ImageData)
			assert.Empty(t, saved[0].ImagePath)
		})
	}
}

func TestSaveAndDetect_NilImageStore(t *testing.T) {
	st := openTestStore(t)
	svc := NewService(&fakeVerifier{verdict: goodVerdict()}, nil, st.AttemptRepo())

	res, err := svc.SaveAndDetect(context.Background(), ids.New(), canvas, "ก")
	require.NoError(t, err)
	assert.Equal(t, canvas, res.ImageData)
}

func TestSaveAndDetect_SanitizesBeforePersisting(t *testing.T) {
	st := openTestStore(t)
	raw := &vision.RawVerdict{DetectedText: "ก", IsCorrect: true, Confidence: 95, Explanation: "เขียนมั่ว เส้นซิกแซก"}
	svc := NewService(&fakeVerifier{verdict: raw}, &fakeImages{}, st.AttemptRepo())
	student := ids.New()

	res, err := svc.SaveAndDetect(context.Background(), student, canvas, "ก")
	require.NoError(t, err)
	assert.False(t, res.IsCorrect)
	assert.LessOrEqual(t, res.Confidence, 30)

	saved, err := st.AttemptRepo().ListWritingAttempts(context.Background(), student, store.QueryOpts{})
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.False(t, saved[0].IsCorrect)
	assert.Equal(t, msgMessy, saved[0].Explanation)
}

func TestSaveAndDetect_Validation(t *testing.T) {
	short := "data:image/png;base64," + strings.Repeat("A", 40)
	garbage := "data:image/png;base64," + strings.Repeat("!", 120)

	tests := []struct {
		name    string
		student ids.ID
		image   string
		target  string
		want    ValidationCode
	}{
		{"missing image", ids.New(), "", "ก", CodeMissingImage},
		{"missing image wins over missing target", ids.New(), "", "", CodeMissingImage},
		{"missing target", ids.New(), canvas, "  ", CodeMissingTarget},
		{"missing student", "", canvas, "ก", CodeMissingStudent},
		{"not a data url", ids.New(), "iVBORw0KGgo=", "ก", CodeInvalidFormat},
		{"empty canvas", ids.New(), short, "ก", CodeEmptyCanvas},
		{"no payload", ids.New(), "data:image/png;base64", "ก", CodeEmptyCanvas},
		{"undecodable", ids.New(), garbage, "ก", CodeInvalidFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := &fakeVerifier{verdict: goodVerdict()}
			images := &fakeImages{}
			svc := NewService(verifier, images, nil)

			_, err := svc.SaveAndDetect(context.Background(), tt.student, tt.image, tt.target)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.want, verr.Code)
			assert.NotEmpty(t, verr.Message)
			assert.Zero(t, verifier.calls, "verifier must not be called")
			assert.Zero(t, images.calls, "storage must not be called")
		})
	}
}

func TestSaveAndDetect_DetectionErrorPropagates(t *testing.T) {
	st := openTestStore(t)
	detErr := &vision.DetectionError{Kind: vision.KindQuota, Err: errors.New("429")}
	svc := NewService(&fakeVerifier{err: detErr}, &fakeImages{}, st.AttemptRepo())
	student := ids.New()

	_, err := svc.SaveAndDetect(context.Background(), student, canvas, "ก")
	var de *vision.DetectionError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, vision.KindQuota, de.Kind)

	n, err := st.AttemptRepo().CountWritingAttempts(context.Background(), student)
	require.NoError(t, err)
	assert.Zero(t, n, "no attempt is recorded when detection fails")
}

func TestDetect(t *testing.T) {
	t.Run("returns sanitized verdict", func(t *testing.T) {
		svc := NewService(&fakeVerifier{verdict: goodVerdict()}, nil, nil)
		v, err := svc.Detect(context.Background(), canvas, "ก")
		require.NoError(t, err)
		assert.True(t, v.IsCorrect)
	})

	t.Run("empty detection is an error", func(t *testing.T) {
		raw := &vision.RawVerdict{DetectedText: "  ", IsCorrect: false, Confidence: 10}
		svc := NewService(&fakeVerifier{verdict: raw}, nil, nil)
		_, err := svc.Detect(context.Background(), canvas, "ก")
		assert.ErrorIs(t, err, ErrNoDetection)
	})

	t.Run("validates input", func(t *testing.T) {
		verifier := &fakeVerifier{verdict: goodVerdict()}
		svc := NewService(verifier, nil, nil)
		_, err := svc.Detect(context.Background(), "not-an-image", "ก")
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, CodeInvalidFormat, verr.Code)
		assert.Zero(t, verifier.calls)
	})
}

func TestHistory(t *testing.T) {
	st := openTestStore(t)
	svc := NewService(&fakeVerifier{verdict: goodVerdict()}, &fakeImages{}, st.AttemptRepo())
	student := ids.New()
	ctx := context.Background()

	for range 3 {
		_, err := svc.SaveAndDetect(ctx, student, canvas, "ก")
		require.NoError(t, err)
	}
	_, err := svc.SaveAndDetect(ctx, ids.New(), canvas, "ก")
	require.NoError(t, err)

	h, err := svc.History(ctx, student, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, h.Total)
	assert.Equal(t, 50, h.Limit)
	assert.Len(t, h.Attempts, 3)

	page, err := svc.History(ctx, student, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page.Attempts, 1)
	assert.Equal(t, 3, page.Total)
}
