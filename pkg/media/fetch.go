package media

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/capgen/capgen/pkg/cache"
	"github.com/capgen/capgen/pkg/errors"
	"github.com/capgen/capgen/pkg/httputil"
)

// Loader resolves a local path or remote URL into raw source bytes.
// Remote fetches go through the cache when one is configured.
type Loader struct {
	Client *http.Client
	Cache  cache.Cache
	Keyer  cache.Keyer
}

// NewLoader creates a loader. A nil cache disables caching.
func NewLoader(client *http.Client, c cache.Cache, keyer cache.Keyer) *Loader {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	return &Loader{Client: client, Cache: c, Keyer: keyer}
}

// IsRemote reports whether the input names an http(s) URL.
func IsRemote(input string) bool {
	return strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://")
}

// LoadWithCacheInfo reads source bytes from a local path or remote URL and
// reports whether a remote fetch was served from cache. Remote failures are
// retrieval errors; local failures are file errors. No partial data is ever
// returned.
func (l *Loader) LoadWithCacheInfo(ctx context.Context, input string) ([]byte, bool, error) {
	if !IsRemote(input) {
		data, err := os.ReadFile(input)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, false, errors.Wrap(errors.ErrCodeFileNotFound, err, "image file not found: %s", input)
			}
			return nil, false, errors.Wrap(errors.ErrCodeInvalidPath, err, "read %s", input)
		}
		return data, false, nil
	}

	key := l.Keyer.SourceKey(input)
	if data, hit, err := l.Cache.Get(ctx, key); err == nil && hit {
		return data, true, nil
	}

	data, err := httputil.Fetch(ctx, l.Client, input)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeRetrieval, err, "fetch %s", input)
	}

	_ = l.Cache.Set(ctx, key, data, cache.TTLSource)
	return data, false, nil
}

// Load is a convenience wrapper that calls LoadWithCacheInfo and discards
// the cache hit info.
func (l *Loader) Load(ctx context.Context, input string) ([]byte, error) {
	data, _, err := l.LoadWithCacheInfo(ctx, input)
	return data, err
}
