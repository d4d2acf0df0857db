package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store persists uploaded files and returns the URL they are served from.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Close() error
}

// ObjectKey 生成唯一文件名，格式为 日期-uuid.扩展名
func ObjectKey(filename string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("%s-%s%s", now.Format("20060102"), uuid.New().String(), ext)
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
