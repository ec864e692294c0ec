package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Tigran0000/inveni/internal/vererr"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestPollUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, path, []byte("hello\n"))

	w := New()
	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	changed, err := w.Poll(path)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if changed {
		t.Error("untouched file should poll unchanged")
	}
}

func TestPollDetectsModification(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, path, []byte("hello\n"))

	w := New()
	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	writeFile(t, path, []byte("hello world\n"))
	// Force a distinct mtime; fast successive writes can share one.
	later := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	changed, err := w.Poll(path)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if !changed {
		t.Error("modified file should poll changed")
	}

	// The cache was updated; the same content polls unchanged again.
	changed, err = w.Poll(path)
	if err != nil {
		t.Fatalf("second Poll failed: %v", err)
	}
	if changed {
		t.Error("second poll after update should report unchanged")
	}
}

func TestPollMtimeShortCircuit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, path, []byte("hello\n"))

	w := New()
	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}

	// Change the bytes but pin the mtime back to the cached value: the
	// poll must trust the mtime and not read the file.
	writeFile(t, path, []byte("sneaky edit\n"))
	if err := os.Chtimes(path, info.ModTime(), info.ModTime()); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	changed, err := w.Poll(path)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if changed {
		t.Error("matching mtime must short-circuit to unchanged")
	}
}

func TestPollTouchedButIdentical(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, path, []byte("hello\n"))

	w := New()
	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	// New mtime, same bytes: rehash happens, but nothing changed.
	later := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	changed, err := w.Poll(path)
	if err != nil {
		t.Fatalf("Poll failed: %v", err)
	}
	if changed {
		t.Error("touch without modification should poll unchanged")
	}
}

func TestPollUnregistered(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	writeFile(t, path, []byte("hello\n"))

	w := New()
	_, err := w.Poll(path)
	if err == nil {
		t.Fatal("polling an unregistered path should fail")
	}
	if !vererr.Is(err, vererr.KindBadRequest) {
		t.Errorf("expected BadRequest, got %v", err)
	}
}

func TestPollMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	writeFile(t, path, []byte("hello\n"))

	w := New()
	if err := w.Watch(path); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove: %v", err)
	}

	_, err := w.Poll(path)
	if !vererr.Is(err, vererr.KindNotFound) {
		t.Errorf("expected NotFound for deleted file, got %v", err)
	}
}
