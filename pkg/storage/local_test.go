package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pdf2zh/pdf2zh/pkg/logger"
)

func TestLocalStoreAndGet(t *testing.T) {
	l, err := NewLocal(t.TempDir(), logger.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	key, err := l.Store(ctx, strings.NewReader("%PDF content"), "uploads/doc.pdf")
	if err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
	if key != "uploads/doc.pdf" {
		t.Errorf("key = %q", key)
	}

	r, err := l.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	defer r.Close()
	data, _ := io.ReadAll(r)
	if string(data) != "%PDF content" {
		t.Errorf("content = %q", data)
	}
}

func TestLocalDelete(t *testing.T) {
	l, _ := NewLocal(t.TempDir(), logger.NewNop())
	ctx := context.Background()

	l.Store(ctx, strings.NewReader("x"), "doc.pdf")
	if err := l.Delete(ctx, "doc.pdf"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := l.Get(ctx, "doc.pdf"); err == nil {
		t.Error("Get succeeded after Delete")
	}
}

func TestLocalRejectsEscapingKeys(t *testing.T) {
	l, _ := NewLocal(t.TempDir(), logger.NewNop())
	ctx := context.Background()

	for _, key := range []string{"../outside.pdf", "/etc/passwd", "a/../../b"} {
		if _, err := l.Store(ctx, strings.NewReader("x"), key); err == nil {
			t.Errorf("Store accepted escaping key %q", key)
		}
	}
}

func TestLocalCleanupBefore(t *testing.T) {
	dir := t.TempDir()
	l, _ := NewLocal(dir, logger.NewNop())
	ctx := context.Background()

	l.Store(ctx, strings.NewReader("old"), "old.pdf")
	oldTime := time.Now().Add(-48 * time.Hour)
	os.Chtimes(filepath.Join(dir, "old.pdf"), oldTime, oldTime)
	l.Store(ctx, strings.NewReader("new"), "new.pdf")

	if err := l.CleanupBefore(ctx, time.Now().Add(-24*time.Hour)); err != nil {
		t.Fatalf("CleanupBefore returned error: %v", err)
	}

	if _, err := l.Get(ctx, "old.pdf"); err == nil {
		t.Error("expired file survived cleanup")
	}
	if _, err := l.Get(ctx, "new.pdf"); err != nil {
		t.Error("fresh file removed by cleanup")
	}
}
