// Package diff renders a unified diff between two file snapshots.
package diff

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// Unified returns a unified diff of a against b with three lines of
// context. Equal inputs yield the empty string.
func Unified(aLabel, bLabel string, a, b []byte) (string, error) {
	if string(a) == string(b) {
		return "", nil
	}
	d := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a)),
		B:        difflib.SplitLines(string(b)),
		FromFile: aLabel,
		ToFile:   bLabel,
		Context:  3,
	}
	out, err := difflib.GetUnifiedDiffString(d)
	if err != nil {
		return "", fmt.Errorf("compute diff: %w", err)
	}
	return out, nil
}
