package blobstore

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Tigran0000/inveni/internal/vererr"
)

func sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func TestPutGetRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	data := []byte("hello\n")
	id := sum(data)

	blobPath, err := s.Put("/src/a.txt", id, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if !strings.HasSuffix(blobPath, filepath.Join("versions", "a.txt", id+".gz")) {
		t.Errorf("unexpected blob path %s", blobPath)
	}

	rc, err := s.Get("/src/a.txt", id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	got, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatalf("read blob: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("round trip mismatch: %q != %q", got, data)
	}
}

func TestBlobIsCompressed(t *testing.T) {
	s := New(t.TempDir())
	data := bytes.Repeat([]byte("compressible "), 4096)
	id := sum(data)

	blobPath, err := s.Put("/src/a.txt", id, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	info, err := os.Stat(blobPath)
	if err != nil {
		t.Fatalf("stat blob: %v", err)
	}
	if info.Size() >= int64(len(data)) {
		t.Errorf("blob not compressed: %d >= %d", info.Size(), len(data))
	}
}

func TestGetMissing(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.Get("/src/a.txt", strings.Repeat("ab", 32))
	if err == nil {
		t.Fatal("Get should fail for a missing blob")
	}
	if !vererr.Is(err, vererr.KindNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestGetCorruptedHeader(t *testing.T) {
	root := t.TempDir()
	s := New(root)
	id := strings.Repeat("cd", 32)

	dir := filepath.Join(root, "versions", "a.txt")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, id+".gz"), []byte("not gzip"), 0644); err != nil {
		t.Fatalf("write bogus blob: %v", err)
	}

	_, err := s.Get("/src/a.txt", id)
	if err == nil {
		t.Fatal("Get should fail on a non-gzip blob")
	}
	if !vererr.Is(err, vererr.KindCorrupted) {
		t.Errorf("expected Corrupted, got %v", err)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	s := New(t.TempDir())
	data := []byte("bye")
	id := sum(data)

	if _, err := s.Put("/src/a.txt", id, bytes.NewReader(data)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Delete("/src/a.txt", id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if s.Has("/src/a.txt", id) {
		t.Error("blob should be gone after Delete")
	}
	// Second delete is a no-op.
	if err := s.Delete("/src/a.txt", id); err != nil {
		t.Errorf("repeat Delete should succeed: %v", err)
	}
}

func TestCountAndListIDs(t *testing.T) {
	s := New(t.TempDir())

	if n, err := s.Count("/src/a.txt"); err != nil || n != 0 {
		t.Fatalf("empty Count = %d, %v", n, err)
	}

	var ids []string
	for _, content := range []string{"one", "two", "three"} {
		id := sum([]byte(content))
		ids = append(ids, id)
		if _, err := s.Put("/src/a.txt", id, strings.NewReader(content)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	n, err := s.Count("/src/a.txt")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}

	listed, err := s.ListIDs("/src/a.txt")
	if err != nil {
		t.Fatalf("ListIDs failed: %v", err)
	}
	found := make(map[string]bool)
	for _, id := range listed {
		found[id] = true
	}
	for _, id := range ids {
		if !found[id] {
			t.Errorf("ListIDs missing %s", id)
		}
	}
}

func TestSharedBaseNameDirectory(t *testing.T) {
	// Distinct paths with the same base name share the per-base
	// directory; both blobs land side by side.
	s := New(t.TempDir())
	idA := sum([]byte("from a"))
	idB := sum([]byte("from b"))

	if _, err := s.Put("/one/x.txt", idA, strings.NewReader("from a")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, err := s.Put("/two/x.txt", idB, strings.NewReader("from b")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	n, err := s.Count("/one/x.txt")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 2 {
		t.Errorf("shared base dir should hold both blobs, Count = %d", n)
	}
}

func TestWriteRescueAndSweep(t *testing.T) {
	root := t.TempDir()
	s := New(root)

	src := filepath.Join(root, "a.txt")
	if err := os.WriteFile(src, []byte("current contents"), 0644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	rescue, err := s.WriteRescue(src)
	if err != nil {
		t.Fatalf("WriteRescue failed: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(rescue), "a.txt.") || !strings.HasSuffix(rescue, ".bak") {
		t.Errorf("unexpected rescue name %s", rescue)
	}
	got, err := os.ReadFile(rescue)
	if err != nil {
		t.Fatalf("read rescue: %v", err)
	}
	if string(got) != "current contents" {
		t.Errorf("rescue contents = %q", got)
	}

	// Fresh rescue survives a sweep.
	removed, err := s.SweepRescues(24 * time.Hour)
	if err != nil {
		t.Fatalf("SweepRescues failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("fresh rescue swept: removed = %d", removed)
	}

	// Aged rescue does not.
	old := time.Now().Add(-25 * time.Hour)
	if err := os.Chtimes(rescue, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	removed, err = s.SweepRescues(24 * time.Hour)
	if err != nil {
		t.Fatalf("SweepRescues failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("aged rescue not swept: removed = %d", removed)
	}
	if _, err := os.Stat(rescue); !os.IsNotExist(err) {
		t.Error("aged rescue should be deleted")
	}
}

func TestPutLeavesNoTempOnSuccess(t *testing.T) {
	root := t.TempDir()
	s := New(root)
	data := []byte("tidy")
	id := sum(data)

	if _, err := s.Put("/src/a.txt", id, bytes.NewReader(data)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(root, "versions", "a.txt"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != id+".gz" {
		t.Errorf("expected exactly the final blob, got %v", entries)
	}
}
