// Package imagestore persists handwriting canvas images.
package imagestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/khianthai/khian/internal/ids"
)

// ErrUnavailable is returned when the store cannot accept writes, for
// example on a read-only deployment.
var ErrUnavailable = errors.New("image storage unavailable")

// Ref locates a stored image.
type Ref struct {
	Path string // filesystem path
	URL  string // public URL path, e.g. /uploads/writing/<file>
}

// Store saves canvas images.
type Store interface {
	Save(ctx context.Context, studentID ids.ID, target string, data []byte) (*Ref, error)
}

// DiskStore writes images under Config.Dir/writing.
type DiskStore struct {
	cfg Config
	now func() time.Time
}

// NewDiskStore creates a DiskStore.
func NewDiskStore(cfg Config) *DiskStore {
	return &DiskStore{cfg: cfg, now: time.Now}
}

// Save decodes data, downsizes it to the configured bound and writes it
// in the configured format. It gives up when ctx is done or the configured
// timeout elapses; a write still in flight may complete afterwards.
func (s *DiskStore) Save(ctx context.Context, studentID ids.ID, target string, data []byte) (*Ref, error) {
	if s.cfg.ReadOnly {
		return nil, ErrUnavailable
	}
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	type result struct {
		ref *Ref
		err error
	}
	done := make(chan result, 1)
	go func() {
		ref, err := s.save(studentID, target, data)
		done <- result{ref, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("save image: %w", ctx.Err())
	case r := <-done:
		return r.ref, r.err
	}
}

func (s *DiskStore) save(studentID ids.ID, target string, data []byte) (*Ref, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if s.cfg.MaxWidth > 0 && s.cfg.MaxHeight > 0 {
		img = imaging.Fit(img, s.cfg.MaxWidth, s.cfg.MaxHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := encode(&buf, img, s.cfg.Format); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	dir := filepath.Join(s.cfg.Dir, "writing")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	name := s.filename(studentID, target)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("write image: %w", err)
	}

	return &Ref{
		Path: path,
		URL:  strings.TrimRight(s.cfg.URLPrefix, "/") + "/writing/" + url.PathEscape(name),
	}, nil
}

func (s *DiskStore) filename(studentID ids.ID, target string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("writing_%s_%s_%d_%s.%s",
		safeName(studentID.String()), safeName(target), s.now().UnixMilli(), suffix, s.cfg.Format.ext())
}

func encode(buf *bytes.Buffer, img image.Image, f Format) error {
	if f == FormatWebP {
		return webp.Encode(buf, img, &webp.Options{Lossless: true})
	}
	return imaging.Encode(buf, img, imaging.PNG)
}

// safeName keeps letters, digits and combining marks (Thai vowels and tone
// marks) and replaces everything else with '_'.
func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '-' {
			return r
		}
		return '_'
	}, s)
}
