package imagestore

import (
	"os"
	"strconv"
	"time"
)

// Format is the on-disk encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

func (f Format) ext() string {
	if f == FormatWebP {
		return "webp"
	}
	return "png"
}

// Config holds image storage settings.
type Config struct {
	Dir       string
	URLPrefix string
	Format    Format
	MaxWidth  int
	MaxHeight int
	ReadOnly  bool
	Timeout   time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Dir:       "public/uploads",
		URLPrefix: "/uploads",
		Format:    FormatPNG,
		MaxWidth:  1024,
		MaxHeight: 1024,
		Timeout:   5 * time.Second,
	}
}

// ConfigFromEnv builds a Config from KHIAN_UPLOAD_* environment variables.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("KHIAN_UPLOAD_PATH"); v != "" {
		cfg.Dir = v
	}
	if v := os.Getenv("KHIAN_UPLOAD_URL_PREFIX"); v != "" {
		cfg.URLPrefix = v
	}
	if v := os.Getenv("KHIAN_UPLOAD_FORMAT"); v == string(FormatWebP) {
		cfg.Format = FormatWebP
	}
	if v := os.Getenv("KHIAN_UPLOAD_MAX_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxWidth, cfg.MaxHeight = n, n
		}
	}
	if v := os.Getenv("KHIAN_UPLOAD_READONLY"); v != "" {
		cfg.ReadOnly, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("KHIAN_UPLOAD_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}

	return cfg
}
