// Package engine ties the hasher, blob store, catalog, and retention
// manager into the public versioning API.
//
// The engine is a synchronous library: every operation blocks on the
// caller's goroutine and finishes before returning. Within one process
// calls are linearizable because each write operation holds a single
// mutex for the whole read-modify-write of the catalog, including the
// retention sweep that follows a commit. There is no cross-process
// coordination; concurrent writers from separate processes are an
// explicit non-goal.
package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/Tigran0000/inveni/internal/blobstore"
	"github.com/Tigran0000/inveni/internal/catalog"
	"github.com/Tigran0000/inveni/internal/diff"
	"github.com/Tigran0000/inveni/internal/hashing"
	"github.com/Tigran0000/inveni/internal/logging"
	"github.com/Tigran0000/inveni/internal/settings"
	"github.com/Tigran0000/inveni/internal/tags"
	"github.com/Tigran0000/inveni/internal/vererr"
	"github.com/Tigran0000/inveni/internal/watcher"
)

// MaxMessageLen bounds the trimmed commit message.
const MaxMessageLen = 200

// RescueMaxAge is how long rescue copies survive before the sweep
// removes them.
const RescueMaxAge = 24 * time.Hour

// Engine is the top-level handle over one repository root.
type Engine struct {
	mu sync.Mutex

	root     string
	settings settings.Settings
	catalog  *catalog.Store
	blobs    *blobstore.Store
	tags     *tags.DB
	watch    *watcher.Watcher
	log      *logging.Logger
}

// CommitResult reports the outcome of a commit.
type CommitResult struct {
	Created           bool
	VersionID         string
	PreviousVersionID string
}

// ChangeResult reports the outcome of change detection.
type ChangeResult struct {
	Changed     bool
	CurrentHash string
	LatestHash  string
}

// Open initializes an Engine over root, creating settings.json with
// defaults on first use.
func Open(root string) (*Engine, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, vererr.BadRequest("open", root, err)
	}
	if err := os.MkdirAll(absRoot, 0755); err != nil {
		return nil, vererr.IO("open", absRoot, err)
	}

	cfg, err := settings.Load(absRoot)
	if err != nil {
		return nil, vererr.IO("open", absRoot, err)
	}

	log, err := logging.Open(absRoot, cfg.LoggingEnabled)
	if err != nil {
		return nil, vererr.IO("open", absRoot, err)
	}

	backupRoot := cfg.BackupFolder
	if !filepath.IsAbs(backupRoot) {
		backupRoot = filepath.Join(absRoot, backupRoot)
	}

	tagDB, err := tags.Open(filepath.Join(absRoot, tags.FileName))
	if err != nil {
		log.Close()
		return nil, vererr.IO("open", absRoot, err)
	}

	return &Engine{
		root:     absRoot,
		settings: cfg,
		catalog:  catalog.NewStore(absRoot),
		blobs:    blobstore.New(backupRoot),
		tags:     tagDB,
		watch:    watcher.New(),
		log:      log,
	}, nil
}

// Close releases the tag database and log files.
func (e *Engine) Close() error {
	err := e.tags.Close()
	if lerr := e.log.Close(); err == nil {
		err = lerr
	}
	return err
}

// Root returns the repository root directory.
func (e *Engine) Root() string { return e.root }

// BackupRoot returns the resolved backup directory.
func (e *Engine) BackupRoot() string { return e.blobs.Root() }

// Settings returns the current repository settings.
func (e *Engine) Settings() settings.Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// UpdateSettings persists new settings and applies them to this handle.
// A changed backup folder takes effect immediately.
func (e *Engine) UpdateSettings(cfg settings.Settings) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cfg.MaxBackups <= 0 {
		return vererr.BadRequest("settings", e.root, fmt.Errorf("max_backups must be positive, got %d", cfg.MaxBackups))
	}
	if err := settings.Save(e.root, cfg); err != nil {
		return vererr.IO("settings", e.root, err)
	}
	e.settings = cfg
	backupRoot := cfg.BackupFolder
	if !filepath.IsAbs(backupRoot) {
		backupRoot = filepath.Join(e.root, backupRoot)
	}
	e.blobs = blobstore.New(backupRoot)
	return nil
}

// normalize resolves path to its cleaned absolute form, the catalog key.
func normalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", vererr.BadRequest("normalize", path, err)
	}
	return abs, nil
}

// loadCatalog reads the catalog, downgrading a corrupted document to an
// empty one after recording the corruption. Writes later replace the
// bad copy on disk.
func (e *Engine) loadCatalog(op string) (catalog.Catalog, error) {
	cat, err := e.catalog.Load()
	if err != nil {
		if vererr.Is(err, vererr.KindCorrupted) {
			e.log.Error("catalog unreadable, treating as empty", "op", op, "error", err)
			e.log.Trail(e.settings.Username, op, e.catalog.Path(), err)
			return cat, nil
		}
		return nil, err
	}
	return cat, nil
}

// Commit records a new snapshot of path. When the content hash already
// exists under the path the commit is a no-op and Created is false;
// force additionally re-runs the retention sweep in that case.
func (e *Engine) Commit(path, message, author string, force bool) (CommitResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	norm, err := normalize(path)
	if err != nil {
		return CommitResult{}, err
	}

	// Precondition order: existence, then message validity, then
	// readability. Each maps to its own error kind.
	info, err := os.Stat(norm)
	if err != nil {
		if os.IsNotExist(err) {
			return CommitResult{}, vererr.NotFound("commit", norm, err)
		}
		return CommitResult{}, vererr.IO("commit", norm, err)
	}
	if !info.Mode().IsRegular() {
		return CommitResult{}, vererr.NotFound("commit", norm, fmt.Errorf("not a regular file"))
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return CommitResult{}, vererr.BadRequest("commit", norm, fmt.Errorf("commit message is empty"))
	}
	if utf8.RuneCountInString(message) > MaxMessageLen {
		return CommitResult{}, vererr.BadRequest("commit", norm, fmt.Errorf("commit message exceeds %d characters", MaxMessageLen))
	}

	if author == "" {
		author = e.settings.Username
	}

	h, err := hashing.SumFile(norm)
	if err != nil {
		e.log.Trail(author, "commit", norm, err)
		return CommitResult{}, err
	}

	cat, err := e.loadCatalog("commit")
	if err != nil {
		e.log.Trail(author, "commit", norm, err)
		return CommitResult{}, err
	}

	latestID := ""
	if latest, ok := cat.Latest(norm); ok {
		latestID = latest.ID
	}

	if existing, ok := cat.Versions(norm)[h]; ok {
		// Content unchanged: idempotent no-op. A duplicate entry for
		// the same hash would break content-equality-implies-identity.
		e.log.Info("commit skipped, content unchanged", "path", norm, "version", h)
		res := CommitResult{Created: false, VersionID: h, PreviousVersionID: existing.PreviousHash}
		if force {
			if _, err := e.sweepLocked(cat, norm, e.settings.MaxBackups); err != nil {
				e.log.Trail(author, "retention", norm, err)
				return res, err
			}
		}
		return res, nil
	}

	// Blob first, catalog second. A failed blob write aborts before the
	// catalog is touched; a blob orphaned by a failed catalog save is
	// reconciled by the next retention sweep.
	src, err := os.Open(norm)
	if err != nil {
		err = vererr.IO("commit", norm, err)
		e.log.Trail(author, "commit", norm, err)
		return CommitResult{}, err
	}
	_, err = e.blobs.Put(norm, h, src)
	src.Close()
	if err != nil {
		e.log.Trail(author, "commit", norm, err)
		return CommitResult{}, err
	}

	now := time.Now()
	cat.Add(norm, h, catalog.Version{
		Timestamp:     now.UTC().Format(settings.TimestampLayout),
		CommitMessage: message,
		Username:      author,
		PreviousHash:  latestID,
		Metadata:      e.captureMetadata(norm, info),
	})

	if err := e.catalog.Save(cat); err != nil {
		e.log.Trail(author, "commit", norm, err)
		return CommitResult{}, err
	}

	e.log.Info("version committed", "path", norm, "version", h, "author", author)

	if _, err := e.sweepLocked(cat, norm, e.settings.MaxBackups); err != nil {
		e.log.Trail(author, "retention", norm, err)
		return CommitResult{Created: true, VersionID: h, PreviousVersionID: latestID}, err
	}
	return CommitResult{Created: true, VersionID: h, PreviousVersionID: latestID}, nil
}

// captureMetadata snapshots the source file's attributes at commit time.
// Where the OS does not expose a birth time the creation pair falls back
// to the modification time.
func (e *Engine) captureMetadata(path string, info os.FileInfo) catalog.Metadata {
	tf := e.settings.TimeFormat
	mod := info.ModTime()
	pair := catalog.TimePair{
		UTC:   mod.UTC().Format(tf.UTC),
		Local: mod.Local().Format(tf.Local),
	}
	fileType := strings.ToLower(filepath.Ext(path))
	if fileType == "" {
		fileType = "unknown"
	}
	return catalog.Metadata{
		Size:             info.Size(),
		ModificationTime: pair,
		CreationTime:     pair,
		FileType:         fileType,
	}
}

// Restore materializes a stored version back to its original path. An
// empty versionID selects the newest version. The current on-disk
// contents are preserved as a rescue copy before being overwritten.
// Restore never modifies the catalog.
func (e *Engine) Restore(path, versionID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	norm, err := normalize(path)
	if err != nil {
		return err
	}

	cat, err := e.loadCatalog("restore")
	if err != nil {
		e.log.Trail(e.settings.Username, "restore", norm, err)
		return err
	}

	versions := cat.Versions(norm)
	if versionID == "" {
		latest, ok := cat.Latest(norm)
		if !ok {
			return vererr.NotFound("restore", norm, fmt.Errorf("no versions recorded"))
		}
		versionID = latest.ID
	}
	if _, ok := versions[versionID]; !ok {
		return vererr.NotFound("restore", norm, fmt.Errorf("version %s not recorded", versionID))
	}
	if !e.blobs.Has(norm, versionID) {
		err := vererr.Corrupted("restore", norm, fmt.Errorf("blob for version %s is missing", versionID))
		e.log.Trail(e.settings.Username, "restore", norm, err)
		return err
	}

	// The target must be writable (or absent) before any work is done.
	if _, statErr := os.Stat(norm); statErr == nil {
		f, werr := os.OpenFile(norm, os.O_WRONLY, 0)
		if werr != nil {
			err := vererr.IO("restore", norm, werr)
			e.log.Trail(e.settings.Username, "restore", norm, err)
			return err
		}
		f.Close()
	}

	// Preserve the current contents before anything overwrites them.
	if _, statErr := os.Stat(norm); statErr == nil {
		rescue, err := e.blobs.WriteRescue(norm)
		if err != nil {
			e.log.Trail(e.settings.Username, "restore", norm, err)
			return err
		}
		e.log.Info("rescue copy written", "path", norm, "rescue", rescue)
	}

	if err := e.materialize(norm, versionID); err != nil {
		e.log.Trail(e.settings.Username, "restore", norm, err)
		return err
	}

	e.log.Info("version restored", "path", norm, "version", versionID)
	return nil
}

// materialize stream-decompresses the blob into a sibling temp file,
// verifies its digest against the version id, and renames it over path.
// Any failure unlinks the temp file and leaves path untouched.
func (e *Engine) materialize(path, versionID string) error {
	rc, err := e.blobs.Get(path, versionID)
	if err != nil {
		return err
	}
	defer rc.Close()

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".restore-*")
	if err != nil {
		return vererr.IO("restore", path, err)
	}
	tmpName := tmp.Name()
	discard := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	digest := sha256.New()
	buf := make([]byte, hashing.ChunkSize)
	for {
		n, rerr := rc.Read(buf)
		if n > 0 {
			digest.Write(buf[:n])
			if _, werr := tmp.Write(buf[:n]); werr != nil {
				return discard(vererr.IO("restore", path, werr))
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			// A read failure mid-stream means the gzip payload is bad.
			return discard(vererr.Corrupted("restore", path, rerr))
		}
	}

	if got := hex.EncodeToString(digest.Sum(nil)); got != versionID {
		return discard(vererr.Corrupted("restore", path,
			fmt.Errorf("blob digest %s does not match version %s", got, versionID)))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return vererr.IO("restore", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return vererr.IO("restore", path, err)
	}
	return nil
}

// ListVersions returns the recorded versions of path, newest first. An
// untracked path yields an empty list, as does a corrupted catalog
// (which is logged and replaced by the next successful save).
func (e *Engine) ListVersions(path string) ([]catalog.Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	norm, err := normalize(path)
	if err != nil {
		return nil, err
	}
	cat, err := e.loadCatalog("list")
	if err != nil {
		return nil, err
	}
	return cat.Sorted(norm), nil
}

// DetectChange compares the file on disk against the recorded versions
// of its path. The file is unchanged exactly when some recorded version
// carries its current hash; LatestHash reports the newest recorded hash
// either way. The hash is always recomputed here; mtime shortcuts are
// the watcher's business, not the commit path's.
func (e *Engine) DetectChange(path string) (ChangeResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	norm, err := normalize(path)
	if err != nil {
		return ChangeResult{}, err
	}

	current, err := hashing.SumFile(norm)
	if err != nil {
		return ChangeResult{}, err
	}

	cat, err := e.loadCatalog("detect")
	if err != nil {
		return ChangeResult{}, err
	}

	latestHash := ""
	if latest, ok := cat.Latest(norm); ok {
		latestHash = latest.ID
	}
	_, known := cat.Versions(norm)[current]
	return ChangeResult{
		Changed:     !known,
		CurrentHash: current,
		LatestHash:  latestHash,
	}, nil
}

// BackupCount returns the number of snapshots in the per-base blob
// directory of path.
func (e *Engine) BackupCount(path string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	norm, err := normalize(path)
	if err != nil {
		return 0, err
	}
	return e.blobs.Count(norm)
}

// Prune runs the retention sweep for path with an explicit quota and
// returns how many versions were evicted.
func (e *Engine) Prune(path string, quota int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if quota <= 0 {
		return 0, vererr.BadRequest("prune", path, fmt.Errorf("quota must be positive, got %d", quota))
	}
	norm, err := normalize(path)
	if err != nil {
		return 0, err
	}
	cat, err := e.loadCatalog("prune")
	if err != nil {
		return 0, err
	}
	evicted, err := e.sweepLocked(cat, norm, quota)
	if err != nil {
		e.log.Trail(e.settings.Username, "prune", norm, err)
	}
	return evicted, err
}

// sweepLocked enforces the retention quota for path and reconciles the
// catalog with the blob store. Caller holds e.mu.
//
// Eviction removes the blob first and the catalog entry second; if the
// blob removal fails the entry stays so the next sweep retries. After
// eviction, orphan blobs (present on disk, absent from every catalog
// path sharing the base directory) are deleted and dangling entries
// (catalog rows whose blob is gone) are dropped. Rescue copies past
// their retention window are aged out last.
func (e *Engine) sweepLocked(cat catalog.Catalog, path string, quota int) (int, error) {
	var firstErr error
	dirty := false

	records := cat.Sorted(path)
	evicted := 0
	if len(records) > quota {
		for _, r := range records[quota:] {
			if err := e.blobs.Delete(path, r.ID); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			cat.Remove(path, r.ID)
			dirty = true
			evicted++
			e.log.Info("version evicted", "path", path, "version", r.ID)
		}
	}

	// Blobs in this base directory may belong to any catalog path with
	// the same base name; only blobs referenced by none of them are
	// orphans.
	referenced := make(map[string]bool)
	base := filepath.Base(path)
	for catPath := range cat {
		if filepath.Base(catPath) != base {
			continue
		}
		for id := range cat.Versions(catPath) {
			referenced[id] = true
		}
	}
	ids, err := e.blobs.ListIDs(path)
	if err != nil && firstErr == nil {
		firstErr = err
	}
	for _, id := range ids {
		if referenced[id] {
			continue
		}
		if err := e.blobs.Delete(path, id); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		e.log.Info("orphan blob removed", "path", path, "version", id)
	}

	for _, r := range cat.Sorted(path) {
		if e.blobs.Has(path, r.ID) {
			continue
		}
		cat.Remove(path, r.ID)
		dirty = true
		e.log.Warn("dangling catalog entry dropped", "path", path, "version", r.ID)
	}

	if dirty {
		if err := e.catalog.Save(cat); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if removed, err := e.blobs.SweepRescues(RescueMaxAge); err != nil {
		if firstErr == nil {
			firstErr = err
		}
	} else if removed > 0 {
		e.log.Info("rescue copies aged out", "count", removed)
	}

	return evicted, firstErr
}

// WatchFile registers path with the pull-mode watcher.
func (e *Engine) WatchFile(path string) error {
	norm, err := normalize(path)
	if err != nil {
		return err
	}
	return e.watch.Watch(norm)
}

// PollWatch reports whether a watched path changed since the last poll.
// Polling an unregistered path registers it and reports no change.
func (e *Engine) PollWatch(path string) (bool, error) {
	norm, err := normalize(path)
	if err != nil {
		return false, err
	}
	changed, err := e.watch.Poll(norm)
	if err != nil && vererr.Is(err, vererr.KindBadRequest) {
		return false, e.watch.Watch(norm)
	}
	return changed, err
}

// readBlob returns the decompressed bytes of a stored version, verifying
// the digest against the version id.
func (e *Engine) readBlob(path, versionID string) ([]byte, error) {
	rc, err := e.blobs.Get(path, versionID)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, vererr.Corrupted("blob.read", path, err)
	}
	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != versionID {
		return nil, vererr.Corrupted("blob.read", path,
			fmt.Errorf("blob digest does not match version %s", versionID))
	}
	return data, nil
}

// DiffVersions renders a unified diff between two stored versions of
// path, or between a stored version and the current file when newID is
// empty.
func (e *Engine) DiffVersions(path, oldID, newID string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	norm, err := normalize(path)
	if err != nil {
		return "", err
	}
	cat, err := e.loadCatalog("diff")
	if err != nil {
		return "", err
	}
	versions := cat.Versions(norm)

	if oldID == "" {
		return "", vererr.BadRequest("diff", norm, errors.New("old version id is required"))
	}
	if _, ok := versions[oldID]; !ok {
		return "", vererr.NotFound("diff", norm, fmt.Errorf("version %s not recorded", oldID))
	}
	oldBytes, err := e.readBlob(norm, oldID)
	if err != nil {
		return "", err
	}

	var newBytes []byte
	newLabel := norm + "@current"
	if newID == "" {
		newBytes, err = os.ReadFile(norm)
		if err != nil {
			if os.IsNotExist(err) {
				return "", vererr.NotFound("diff", norm, err)
			}
			return "", vererr.IO("diff", norm, err)
		}
	} else {
		if _, ok := versions[newID]; !ok {
			return "", vererr.NotFound("diff", norm, fmt.Errorf("version %s not recorded", newID))
		}
		newBytes, err = e.readBlob(norm, newID)
		if err != nil {
			return "", err
		}
		newLabel = norm + "@" + shortID(newID)
	}

	return diff.Unified(norm+"@"+shortID(oldID), newLabel, oldBytes, newBytes)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// TagAdd attaches a tag to a recorded version of path.
func (e *Engine) TagAdd(path, versionID, tag string) error {
	norm, versionID, err := e.resolveVersion(path, versionID, "tag")
	if err != nil {
		return err
	}
	if tags.Normalize(tag) == "" {
		return vererr.BadRequest("tag", norm, errors.New("tag is empty"))
	}
	return e.tags.Add(norm, versionID, tag)
}

// TagRemove detaches a tag from a version. Stale rows for evicted
// versions may be removed too; no catalog check is made.
func (e *Engine) TagRemove(path, versionID, tag string) error {
	norm, err := normalize(path)
	if err != nil {
		return err
	}
	return e.tags.Remove(norm, versionID, tag)
}

// TagList returns the tags of a recorded version of path.
func (e *Engine) TagList(path, versionID string) ([]string, error) {
	norm, versionID, err := e.resolveVersion(path, versionID, "tag")
	if err != nil {
		return nil, err
	}
	return e.tags.List(norm, versionID)
}

// resolveVersion normalizes path and checks that versionID is recorded,
// defaulting an empty id to the newest version.
func (e *Engine) resolveVersion(path, versionID, op string) (string, string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	norm, err := normalize(path)
	if err != nil {
		return "", "", err
	}
	cat, err := e.loadCatalog(op)
	if err != nil {
		return "", "", err
	}
	if versionID == "" {
		latest, ok := cat.Latest(norm)
		if !ok {
			return "", "", vererr.NotFound(op, norm, errors.New("no versions recorded"))
		}
		return norm, latest.ID, nil
	}
	if _, ok := cat.Versions(norm)[versionID]; !ok {
		return "", "", vererr.NotFound(op, norm, fmt.Errorf("version %s not recorded", versionID))
	}
	return norm, versionID, nil
}
