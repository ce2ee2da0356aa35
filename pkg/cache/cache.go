// Package cache provides pluggable byte caching for capgen.
//
// Two kinds of data are cached: raw source images fetched from remote URLs,
// and fully rendered (captioned, possibly compressed) outputs. Backends:
//   - FileCache: directory-backed, for CLI usage
//   - RedisCache: shared cache for serve mode with multiple instances
//   - NullCache: caching disabled
//
// Keys are derived by a Keyer so that CLI and API agree on key layout and a
// change in any rendering-relevant option produces a distinct key.
package cache

import (
	"context"
	"time"
)

// Default TTLs per entry kind. Source bytes are immutable for a given URL
// much longer than rendered outputs stay interesting.
const (
	TTLSource = 7 * 24 * time.Hour
	TTLResult = 24 * time.Hour
)

// Cache is the interface for cache backends.
type Cache interface {
	// Get retrieves a value. The second return value reports a hit.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given TTL. A TTL of 0 means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// RenderKeyOpts captures every option that affects rendered output.
type RenderKeyOpts struct {
	TopText          string `json:"top_text"`
	BottomText       string `json:"bottom_text,omitempty"`
	Bold             bool   `json:"bold,omitempty"`
	Italic           bool   `json:"italic,omitempty"`
	BottomBox        bool   `json:"bottom_box,omitempty"`
	Separator        bool   `json:"separator,omitempty"`
	TopFontColor     string `json:"top_font_color,omitempty"`
	BottomFontColor  string `json:"bottom_font_color,omitempty"`
	TopBackground    string `json:"top_background,omitempty"`
	BottomBackground string `json:"bottom_background,omitempty"`
	SeparatorColor   string `json:"separator_color,omitempty"`
	FontPath         string `json:"font_path,omitempty"`
	Format           string `json:"format,omitempty"`
	Budget           int    `json:"budget,omitempty"`
}

// Keyer generates cache keys for the different entry kinds.
type Keyer interface {
	// SourceKey generates a key for raw source image bytes.
	SourceKey(url string) string

	// ResultKey generates a key for a rendered output, scoped by the
	// source content hash and the rendering options.
	ResultKey(sourceHash string, opts RenderKeyOpts) string
}

// DefaultKeyer is the standard key layout shared by CLI and API.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the standard keyer.
func NewDefaultKeyer() Keyer {
	return &DefaultKeyer{}
}

// SourceKey generates a key for raw source image bytes.
func (k *DefaultKeyer) SourceKey(url string) string {
	return hashKey("source", url)
}

// ResultKey generates a key for a rendered output.
func (k *DefaultKeyer) ResultKey(sourceHash string, opts RenderKeyOpts) string {
	return hashKey("result", sourceHash, opts)
}

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation, e.g. to
// separate cache entries of independent serve-mode tenants.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// SourceKey generates a prefixed key for raw source image bytes.
func (k *ScopedKeyer) SourceKey(url string) string {
	return k.prefix + k.inner.SourceKey(url)
}

// ResultKey generates a prefixed key for a rendered output.
func (k *ScopedKeyer) ResultKey(sourceHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.ResultKey(sourceHash, opts)
}
