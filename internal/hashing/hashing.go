// Package hashing computes the content digests used by the engine.
//
// Version identity is the lowercase hex SHA-256 of a file's bytes,
// streamed in 8 KiB chunks. The watcher uses a separate BLAKE3 digest
// for its poll cache; that digest never appears in the catalog.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"os"

	"lukechampine.com/blake3"

	"github.com/Tigran0000/inveni/internal/vererr"
)

// ChunkSize is the read size used when streaming a file into a digest.
const ChunkSize = 8 * 1024

// SumFile returns the lowercase hex SHA-256 of the file at path.
// The file is not held open beyond the call.
func SumFile(path string) (string, error) {
	return sumFile(path, sha256.New())
}

// SumReader returns the lowercase hex SHA-256 of everything read from r.
func SumReader(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, ChunkSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return "", vererr.IO("hash", "", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// PollDigest returns a BLAKE3-256 digest of the file at path. It is a
// cheap self-consistent fingerprint for the watcher's change cache.
func PollDigest(path string) (string, error) {
	return sumFile(path, blake3.New(32, nil))
}

func sumFile(path string, h hash.Hash) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", vererr.NotFound("hash", path, err)
		}
		return "", vererr.IO("hash", path, err)
	}
	defer f.Close()

	buf := make([]byte, ChunkSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", vererr.IO("hash", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
