// Package catalog persists the tracked-files index.
//
// The catalog is a single JSON document, tracked_files.json, mapping each
// normalized absolute path to its versions keyed by content hash. It is
// rewritten whole on every update through a temp-file-then-rename so a
// crash leaves either the old or the new copy on disk, never a truncated
// one. The catalog is authoritative for version ordering; the blob store
// is authoritative for content existence.
package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/Tigran0000/inveni/internal/vererr"
)

// FileName is the catalog file name inside the repository root.
const FileName = "tracked_files.json"

// TimePair carries one instant rendered in both UTC and local time.
type TimePair struct {
	UTC   string `json:"utc"`
	Local string `json:"local"`
}

// Metadata is the snapshot of source-file attributes captured at commit.
type Metadata struct {
	Size             int64    `json:"size"`
	ModificationTime TimePair `json:"modification_time"`
	CreationTime     TimePair `json:"creation_time"`
	FileType         string   `json:"file_type"`
}

// Version is one recorded snapshot of a tracked file.
type Version struct {
	Timestamp     string   `json:"timestamp"` // UTC, "YYYY-MM-DD HH:MM:SS"
	CommitMessage string   `json:"commit_message"`
	Username      string   `json:"username"`
	PreviousHash  string   `json:"previous_hash"`
	Metadata      Metadata `json:"metadata"`
}

// FileEntry holds all versions of one tracked path.
type FileEntry struct {
	Versions map[string]Version `json:"versions"`
}

// Catalog maps normalized absolute paths to their version sets.
type Catalog map[string]*FileEntry

// Record pairs a version with its content-hash identifier for listing.
type Record struct {
	ID string
	Version
}

// Versions returns the version map for path, or nil if untracked.
func (c Catalog) Versions(path string) map[string]Version {
	if e, ok := c[path]; ok {
		return e.Versions
	}
	return nil
}

// Add inserts a version under path, creating the entry on first commit.
func (c Catalog) Add(path, id string, v Version) {
	e, ok := c[path]
	if !ok {
		e = &FileEntry{Versions: make(map[string]Version)}
		c[path] = e
	}
	e.Versions[id] = v
}

// Remove deletes one version. An entry left with zero versions is
// dropped so it is never surfaced between commits.
func (c Catalog) Remove(path, id string) {
	e, ok := c[path]
	if !ok {
		return
	}
	delete(e.Versions, id)
	if len(e.Versions) == 0 {
		delete(c, path)
	}
}

// Sorted returns the versions of path newest first. Ordering is by
// timestamp descending; commits landing within the same second are
// ordered by their depth along the previous_hash chain, falling back to
// the hash for determinism.
func (c Catalog) Sorted(path string) []Record {
	versions := c.Versions(path)
	if len(versions) == 0 {
		return nil
	}
	records := make([]Record, 0, len(versions))
	for id, v := range versions {
		records = append(records, Record{ID: id, Version: v})
	}

	// depth counts the ancestors of a version still present in the
	// set; a version deeper in the chain is newer than its ancestors.
	depths := make(map[string]int, len(versions))
	var depthOf func(id string) int
	depthOf = func(id string) int {
		if d, ok := depths[id]; ok {
			return d
		}
		depths[id] = 0 // guards against a damaged, cyclic chain
		d := 0
		if v, ok := versions[id]; ok && v.PreviousHash != "" {
			if _, ok := versions[v.PreviousHash]; ok {
				d = 1 + depthOf(v.PreviousHash)
			}
		}
		depths[id] = d
		return d
	}
	for id := range versions {
		depthOf(id)
	}

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Timestamp != b.Timestamp {
			return a.Timestamp > b.Timestamp
		}
		if depths[a.ID] != depths[b.ID] {
			return depths[a.ID] > depths[b.ID]
		}
		return a.ID < b.ID
	})
	return records
}

// Latest returns the most recently committed version of path.
func (c Catalog) Latest(path string) (Record, bool) {
	records := c.Sorted(path)
	if len(records) == 0 {
		return Record{}, false
	}
	return records[0], true
}

// Store reads and writes the catalog document at a fixed location.
type Store struct {
	path string
}

// NewStore returns a Store for the catalog inside the repository root.
func NewStore(root string) *Store {
	return &Store{path: filepath.Join(root, FileName)}
}

// Path returns the canonical catalog file location.
func (s *Store) Path() string { return s.path }

// Load reads the catalog. A missing file yields an empty catalog. An
// unparsable file also yields an empty catalog but reports Corrupted so
// the caller can log it; the next successful Save replaces the bad copy.
func (s *Store) Load() (Catalog, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Catalog{}, nil
		}
		return Catalog{}, vererr.IO("catalog.load", s.path, err)
	}

	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return Catalog{}, vererr.Corrupted("catalog.load", s.path, err)
	}
	if c == nil {
		c = Catalog{}
	}
	for path, e := range c {
		if e == nil || len(e.Versions) == 0 {
			delete(c, path)
		}
	}
	return c, nil
}

// Save serializes the whole catalog into a temp file in the same
// directory and renames it over the canonical name.
func (s *Store) Save(c Catalog) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return vererr.IO("catalog.save", s.path, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return vererr.IO("catalog.save", s.path, err)
	}
	tmp, err := os.CreateTemp(dir, FileName+".tmp-*")
	if err != nil {
		return vererr.IO("catalog.save", s.path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return vererr.IO("catalog.save", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return vererr.IO("catalog.save", s.path, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return vererr.IO("catalog.save", s.path, err)
	}
	return nil
}
