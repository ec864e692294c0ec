package tags

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAddNormalizesAndSorts(t *testing.T) {
	db := openTestDB(t)

	for _, tag := range []string{"  Draft ", "REVIEWED", "draft"} {
		if err := db.Add("/tmp/a.txt", "aaaa", tag); err != nil {
			t.Fatalf("Add(%q) failed: %v", tag, err)
		}
	}

	got, err := db.List("/tmp/a.txt", "aaaa")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"draft", "reviewed"}
	if len(got) != len(want) {
		t.Fatalf("List = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAddEmptyTagIsNoOp(t *testing.T) {
	db := openTestDB(t)

	if err := db.Add("/tmp/a.txt", "aaaa", "   "); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	got, err := db.List("/tmp/a.txt", "aaaa")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("blank tag should not be stored, got %v", got)
	}
}

func TestRemove(t *testing.T) {
	db := openTestDB(t)

	for _, tag := range []string{"one", "two"} {
		if err := db.Add("/tmp/a.txt", "aaaa", tag); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}
	if err := db.Remove("/tmp/a.txt", "aaaa", "ONE"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	got, err := db.List("/tmp/a.txt", "aaaa")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 1 || got[0] != "two" {
		t.Errorf("List = %v, want [two]", got)
	}

	// Removing the last tag drops the row entirely.
	if err := db.Remove("/tmp/a.txt", "aaaa", "two"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	got, err = db.List("/tmp/a.txt", "aaaa")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("List after removing all = %v, want empty", got)
	}
}

func TestVersionsAreIndependent(t *testing.T) {
	db := openTestDB(t)

	if err := db.Add("/tmp/a.txt", "aaaa", "old"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := db.Add("/tmp/a.txt", "bbbb", "new"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := db.Add("/tmp/b.txt", "aaaa", "other-file"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	got, err := db.List("/tmp/a.txt", "aaaa")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 1 || got[0] != "old" {
		t.Errorf("tags leaked across versions or paths: %v", got)
	}
}
