package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ImagesKey is the key family holding image list pages.
const ImagesKey = "images"

var ErrClosed = errors.New("cache is closed")

// Cache stores serialized query results by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Invalidate drops key and every key below it ("key:...").
	Invalidate(ctx context.Context, key string) error
	Close() error
}

// Key joins parts below a key family, e.g. Key("images", "page", "2").
func Key(family string, parts ...string) string {
	if len(parts) == 0 {
		return family
	}
	return family + ":" + strings.Join(parts, ":")
}

func matchesFamily(key, family string) bool {
	return key == family || strings.HasPrefix(key, family+":")
}
