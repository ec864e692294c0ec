// Package watcher implements the pull-mode change watcher.
//
// Callers register a path and poll it on their own schedule. The watcher
// caches (mtime, digest) per path and only rehashes when the mtime moved,
// so an idle poll costs one stat. It holds no file handles between calls.
// The poll digest is BLAKE3; it is compared only against this cache and
// never against catalog hashes.
package watcher

import (
	"os"
	"sync"
	"time"

	"github.com/Tigran0000/inveni/internal/hashing"
	"github.com/Tigran0000/inveni/internal/vererr"
)

type entry struct {
	mtime  time.Time
	digest string
}

// Watcher tracks registered paths and answers "did this change since the
// last poll". Safe for concurrent use; reentrant per path.
type Watcher struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New returns an empty Watcher.
func New() *Watcher {
	return &Watcher{entries: make(map[string]*entry)}
}

// Watch registers path and primes its cache from the current file state.
// Re-registering an already watched path re-primes it.
func (w *Watcher) Watch(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return vererr.NotFound("watch", path, err)
		}
		return vererr.IO("watch", path, err)
	}
	digest, err := hashing.PollDigest(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.entries[path] = &entry{mtime: info.ModTime(), digest: digest}
	return nil
}

// Unwatch forgets path. Polling it again requires a new Watch call.
func (w *Watcher) Unwatch(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.entries, path)
}

// Poll reports whether path changed since the previous poll. When the
// mtime matches the cache the file is not read at all; otherwise the
// file is rehashed and the cache updated.
func (w *Watcher) Poll(path string) (bool, error) {
	w.mu.Lock()
	e, ok := w.entries[path]
	w.mu.Unlock()
	if !ok {
		return false, vererr.BadRequest("poll", path, nil)
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, vererr.NotFound("poll", path, err)
		}
		return false, vererr.IO("poll", path, err)
	}
	if info.ModTime().Equal(e.mtime) {
		return false, nil
	}

	digest, err := hashing.PollDigest(path)
	if err != nil {
		return false, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	changed := digest != e.digest
	e.mtime = info.ModTime()
	e.digest = digest
	return changed, nil
}
