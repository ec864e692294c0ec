package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Tigran0000/inveni/internal/vererr"
)

func version(ts, prev string) Version {
	return Version{
		Timestamp:     ts,
		CommitMessage: "msg",
		Username:      "alice",
		PreviousHash:  prev,
		Metadata: Metadata{
			Size:             6,
			ModificationTime: TimePair{UTC: ts, Local: ts},
			CreationTime:     TimePair{UTC: ts, Local: ts},
			FileType:         ".txt",
		},
	}
}

func TestLoadMissingIsEmpty(t *testing.T) {
	s := NewStore(t.TempDir())
	c, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(c) != 0 {
		t.Errorf("missing catalog should load empty, got %d entries", len(c))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)

	c := Catalog{}
	c.Add("/tmp/a.txt", "aaaa", version("2026-01-01 10:00:00", ""))
	c.Add("/tmp/a.txt", "bbbb", version("2026-01-01 11:00:00", "aaaa"))
	if err := s.Save(c); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	versions := got.Versions("/tmp/a.txt")
	if len(versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(versions))
	}
	if versions["bbbb"].PreviousHash != "aaaa" {
		t.Errorf("previous_hash lost in round trip: %+v", versions["bbbb"])
	}
}

func TestWireFormatKeys(t *testing.T) {
	// The on-disk JSON shape is a stable interface; key names must not
	// drift with refactors.
	c := Catalog{}
	c.Add("/tmp/a.txt", "aaaa", version("2026-01-01 10:00:00", ""))

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	for _, key := range []string{
		`"versions"`, `"timestamp"`, `"commit_message"`, `"username"`,
		`"previous_hash"`, `"metadata"`, `"size"`, `"modification_time"`,
		`"creation_time"`, `"file_type"`, `"utc"`, `"local"`,
	} {
		if !strings.Contains(string(data), key) {
			t.Errorf("serialized catalog missing key %s", key)
		}
	}
}

func TestLoadCorruptedReportsAndEmpties(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, FileName), []byte("{ not json"), 0644); err != nil {
		t.Fatalf("write corrupt catalog: %v", err)
	}

	s := NewStore(root)
	c, err := s.Load()
	if err == nil {
		t.Fatal("corrupt catalog should report an error")
	}
	if !vererr.Is(err, vererr.KindCorrupted) {
		t.Errorf("expected Corrupted, got %v", err)
	}
	if len(c) != 0 {
		t.Errorf("corrupt catalog should read as empty, got %d entries", len(c))
	}

	// A save replaces the bad copy.
	c = Catalog{}
	c.Add("/tmp/a.txt", "aaaa", version("2026-01-01 10:00:00", ""))
	if err := s.Save(c); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := s.Load(); err != nil {
		t.Errorf("catalog should parse after rewrite: %v", err)
	}
}

func TestSortedNewestFirst(t *testing.T) {
	c := Catalog{}
	c.Add("/tmp/a.txt", "aaaa", version("2026-01-01 10:00:00", ""))
	c.Add("/tmp/a.txt", "bbbb", version("2026-01-01 11:00:00", "aaaa"))
	c.Add("/tmp/a.txt", "cccc", version("2026-01-01 12:00:00", "bbbb"))

	records := c.Sorted("/tmp/a.txt")
	want := []string{"cccc", "bbbb", "aaaa"}
	for i, id := range want {
		if records[i].ID != id {
			t.Errorf("records[%d] = %s, want %s", i, records[i].ID, id)
		}
	}
}

func TestSortedTieBrokenByChain(t *testing.T) {
	// Two commits inside the same second share a timestamp; the
	// previous_hash chain decides which is newer.
	c := Catalog{}
	c.Add("/tmp/a.txt", "aaaa", version("2026-01-01 10:00:00", ""))
	c.Add("/tmp/a.txt", "bbbb", version("2026-01-01 10:00:00", "aaaa"))

	records := c.Sorted("/tmp/a.txt")
	if records[0].ID != "bbbb" || records[1].ID != "aaaa" {
		t.Errorf("chain tie-break wrong: got %s, %s", records[0].ID, records[1].ID)
	}
}

func TestLatest(t *testing.T) {
	c := Catalog{}
	if _, ok := c.Latest("/tmp/a.txt"); ok {
		t.Error("Latest on untracked path should report not ok")
	}

	c.Add("/tmp/a.txt", "aaaa", version("2026-01-01 10:00:00", ""))
	c.Add("/tmp/a.txt", "bbbb", version("2026-01-01 11:00:00", "aaaa"))
	latest, ok := c.Latest("/tmp/a.txt")
	if !ok || latest.ID != "bbbb" {
		t.Errorf("Latest = %v (ok=%v), want bbbb", latest.ID, ok)
	}
}

func TestRemoveDropsEmptyEntry(t *testing.T) {
	c := Catalog{}
	c.Add("/tmp/a.txt", "aaaa", version("2026-01-01 10:00:00", ""))
	c.Remove("/tmp/a.txt", "aaaa")

	if _, ok := c["/tmp/a.txt"]; ok {
		t.Error("entry with zero versions should not be surfaced")
	}
}

func TestSaveIsAtomicReplacement(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)

	c := Catalog{}
	c.Add("/tmp/a.txt", "aaaa", version("2026-01-01 10:00:00", ""))
	if err := s.Save(c); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	c.Add("/tmp/a.txt", "bbbb", version("2026-01-01 11:00:00", "aaaa"))
	if err := s.Save(c); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	// No temp leftovers next to the canonical file.
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if e.Name() != FileName {
			t.Errorf("unexpected leftover file %s", e.Name())
		}
	}
}
