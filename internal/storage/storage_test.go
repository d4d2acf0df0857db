package storage

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestObjectKeyFormat(t *testing.T) {
	now := time.Date(2025, 3, 9, 8, 0, 0, 0, time.UTC)
	key := ObjectKey("Holiday.JPG", now)

	pattern := regexp.MustCompile(`^20250309-[0-9a-f-]{36}\.jpg$`)
	if !pattern.MatchString(key) {
		t.Fatalf("unexpected key %q", key)
	}
	if ObjectKey("Holiday.JPG", now) == key {
		t.Fatalf("keys must be unique")
	}
}

func TestLocalStorePut(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	store, err := NewLocalStore(dir, "/static/uploads/")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	url, err := store.Put(context.Background(), "a.png", strings.NewReader("png-bytes"), 9, "image/png")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if url != "/static/uploads/a.png" {
		t.Fatalf("unexpected url %q", url)
	}
	data, err := os.ReadFile(filepath.Join(dir, "a.png"))
	if err != nil || string(data) != "png-bytes" {
		t.Fatalf("unexpected file contents %q (%v)", data, err)
	}

	if _, err := store.Put(context.Background(), "a.png", strings.NewReader("again"), 5, "image/png"); err == nil {
		t.Fatalf("expected existing key to be rejected")
	}
}

func TestLocalStoreKeepsKeysInsideDir(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "/uploads")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	url, err := store.Put(context.Background(), "../../escape.gif", strings.NewReader("gif"), 3, "image/gif")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if url != "/uploads/escape.gif" {
		t.Fatalf("unexpected url %q", url)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.gif")); err != nil {
		t.Fatalf("expected file inside upload dir: %v", err)
	}
}

func TestPublicBaseURL(t *testing.T) {
	got := publicBaseURL(MinioConfig{Endpoint: "minio:9000", Bucket: "gallery"})
	if got != "http://minio:9000/gallery" {
		t.Fatalf("unexpected base %q", got)
	}
	got = publicBaseURL(MinioConfig{Endpoint: "minio:9000", Bucket: "gallery", UseSSL: true, PublicURL: "https://cdn.example.com/"})
	if got != "https://cdn.example.com/gallery" {
		t.Fatalf("unexpected base %q", got)
	}
}
