// Package blobstore is the content-addressed snapshot store.
//
// Blobs are gzip-compressed byte-exact copies of a file's contents,
// named by the SHA-256 of the uncompressed bytes:
//
//	<backup_root>/versions/<base_name>/<version_id>.gz
//	<backup_root>/temp_backups/<base_name>.<YYYYMMDD_HHMMSS>.bak
//
// All writes go through a temp file renamed into place, so a partial
// blob is never observable under its final name. Distinct source paths
// with the same base name share a per-base directory; the catalog keys
// by full path, so correctness is unaffected.
package blobstore

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/Tigran0000/inveni/internal/vererr"
)

// RescueStampLayout names rescue copies down to the second.
const RescueStampLayout = "20060102_150405"

// Store manages the on-disk blob and rescue-copy layout under one root.
type Store struct {
	root string
}

// New returns a Store rooted at the backup directory.
func New(root string) *Store {
	return &Store{root: root}
}

// Root returns the backup root directory.
func (s *Store) Root() string { return s.root }

// versionsDir is the per-base snapshot directory for a source path.
func (s *Store) versionsDir(path string) string {
	return filepath.Join(s.root, "versions", filepath.Base(path))
}

// rescueDir is the shared rescue-copy directory.
func (s *Store) rescueDir() string {
	return filepath.Join(s.root, "temp_backups")
}

// BlobPath returns where the blob for (path, versionID) lives.
func (s *Store) BlobPath(path, versionID string) string {
	return filepath.Join(s.versionsDir(path), versionID+".gz")
}

// Put streams src through gzip into the blob for (path, versionID) and
// returns the final blob path. The write lands in a temp file first and
// is renamed into place once complete.
func (s *Store) Put(path, versionID string, src io.Reader) (string, error) {
	dir := s.versionsDir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", vererr.IO("blobstore.put", path, err)
	}

	tmp, err := os.CreateTemp(dir, versionID+".tmp-*")
	if err != nil {
		return "", vererr.IO("blobstore.put", path, err)
	}
	tmpName := tmp.Name()
	fail := func(err error) (string, error) {
		tmp.Close()
		os.Remove(tmpName)
		return "", vererr.IO("blobstore.put", path, err)
	}

	zw := gzip.NewWriter(tmp)
	if _, err := io.Copy(zw, src); err != nil {
		return fail(err)
	}
	if err := zw.Close(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", vererr.IO("blobstore.put", path, err)
	}

	final := s.BlobPath(path, versionID)
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return "", vererr.IO("blobstore.put", path, err)
	}
	return final, nil
}

// blobReader closes both the gzip stream and the underlying file.
type blobReader struct {
	*gzip.Reader
	f *os.File
}

func (r *blobReader) Close() error {
	zerr := r.Reader.Close()
	ferr := r.f.Close()
	if zerr != nil {
		return zerr
	}
	return ferr
}

// Get opens the blob for (path, versionID) and returns a decompressing
// reader. A blob that fails the gzip header check reports Corrupted.
func (s *Store) Get(path, versionID string) (io.ReadCloser, error) {
	blob := s.BlobPath(path, versionID)
	f, err := os.Open(blob)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, vererr.NotFound("blobstore.get", path, err)
		}
		return nil, vererr.IO("blobstore.get", path, err)
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, vererr.Corrupted("blobstore.get", blob, err)
	}
	return &blobReader{Reader: zr, f: f}, nil
}

// Has reports whether the blob for (path, versionID) exists on disk.
func (s *Store) Has(path, versionID string) bool {
	_, err := os.Stat(s.BlobPath(path, versionID))
	return err == nil
}

// Delete removes the blob if present. Deleting an absent blob is a no-op.
func (s *Store) Delete(path, versionID string) error {
	err := os.Remove(s.BlobPath(path, versionID))
	if err != nil && !os.IsNotExist(err) {
		return vererr.IO("blobstore.delete", path, err)
	}
	return nil
}

// Count returns the number of .gz snapshots in the per-base directory
// of path. Paths sharing a base name share the count.
func (s *Store) Count(path string) (int, error) {
	ids, err := s.ListIDs(path)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// ListIDs returns the version IDs of every snapshot in the per-base
// directory of path.
func (s *Store) ListIDs(path string) ([]string, error) {
	entries, err := os.ReadDir(s.versionsDir(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, vererr.IO("blobstore.list", path, err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".gz") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".gz"))
	}
	return ids, nil
}

// WriteRescue copies the current on-disk bytes of path into a
// timestamped rescue copy and returns its location. Rescue copies live
// in their own namespace and never affect catalog/blob agreement.
func (s *Store) WriteRescue(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", vererr.NotFound("blobstore.rescue", path, err)
		}
		return "", vererr.IO("blobstore.rescue", path, err)
	}
	defer src.Close()

	dir := s.rescueDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", vererr.IO("blobstore.rescue", path, err)
	}

	stamp := time.Now().Format(RescueStampLayout)
	final := filepath.Join(dir, filepath.Base(path)+"."+stamp+".bak")

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", vererr.IO("blobstore.rescue", path, err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", vererr.IO("blobstore.rescue", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", vererr.IO("blobstore.rescue", path, err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return "", vererr.IO("blobstore.rescue", path, err)
	}
	return final, nil
}

// SweepRescues removes rescue copies older than maxAge and returns how
// many were deleted.
func (s *Store) SweepRescues(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.rescueDir())
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, vererr.IO("blobstore.sweep", s.rescueDir(), err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".bak") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.rescueDir(), e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}
