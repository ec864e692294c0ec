// Package tags stores free-form labels attached to individual versions.
//
// Tags live outside the catalog, in a bbolt database beside it, keyed by
// (path, version_id). They carry no retention semantics: evicting a
// version leaves its tag row behind, and listings simply never surface
// rows whose version is gone.
package tags

import (
	"encoding/json"
	"sort"
	"strings"

	"go.etcd.io/bbolt"
)

// FileName is the tag database file inside the repository root.
const FileName = "tags.db"

var bucketTags = []byte("tags")

// DB wraps the bbolt handle with tag operations.
type DB struct{ *bbolt.DB }

// Open opens (or creates) the tag database at path.
func Open(path string) (*DB, error) {
	db, err := bbolt.Open(path, 0666, nil)
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists(bucketTags)
		return e
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{db}, nil
}

func (db *DB) Close() error { return db.DB.Close() }

// key joins path and version id with a NUL, which cannot appear in
// either component.
func key(path, versionID string) []byte {
	return []byte(path + "\x00" + versionID)
}

// Normalize trims and lowercases a tag. An empty result is not a tag.
func Normalize(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// Add attaches a tag to (path, versionID). The stored set stays sorted
// and deduplicated; adding an existing tag is a no-op.
func (db *DB) Add(path, versionID, tag string) error {
	tag = Normalize(tag)
	if tag == "" {
		return nil
	}
	return db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTags)
		current, err := decode(b.Get(key(path, versionID)))
		if err != nil {
			return err
		}
		for _, t := range current {
			if t == tag {
				return nil
			}
		}
		current = append(current, tag)
		sort.Strings(current)
		data, err := json.Marshal(current)
		if err != nil {
			return err
		}
		return b.Put(key(path, versionID), data)
	})
}

// Remove detaches a tag. Removing the last tag deletes the row.
func (db *DB) Remove(path, versionID, tag string) error {
	tag = Normalize(tag)
	return db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketTags)
		current, err := decode(b.Get(key(path, versionID)))
		if err != nil {
			return err
		}
		kept := current[:0]
		for _, t := range current {
			if t != tag {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			return b.Delete(key(path, versionID))
		}
		data, err := json.Marshal(kept)
		if err != nil {
			return err
		}
		return b.Put(key(path, versionID), data)
	})
}

// List returns the tags of (path, versionID), sorted. A version with no
// tags yields an empty slice.
func (db *DB) List(path, versionID string) ([]string, error) {
	var out []string
	err := db.View(func(tx *bbolt.Tx) error {
		current, err := decode(tx.Bucket(bucketTags).Get(key(path, versionID)))
		if err != nil {
			return err
		}
		out = current
		return nil
	})
	return out, err
}

func decode(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal(data, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}
