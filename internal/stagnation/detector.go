// Package stagnation detects when consecutive attempts at the same phase
// are producing near-identical output, so the implementation loop can
// short-circuit rather than spend further retries restating the same work.
package stagnation

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

// Detector compares successive attempt output files for a phase.
type Detector struct {
	LogDir    string
	Threshold float64 // similarity ratio in [0,1], default 0.90
}

// New creates a Detector rooted at logDir with the given threshold.
func New(logDir string, threshold float64) *Detector {
	if threshold <= 0 {
		threshold = 0.90
	}
	return &Detector{LogDir: logDir, Threshold: threshold}
}

// IsStagnant reports whether attempt k of phaseBase shows no meaningful
// progress over attempt k-1: either their raw bytes hash identically, or
// their LCS-based similarity ratio meets the threshold. Fewer than two
// attempts (k < 2) is never stagnant.
func (d *Detector) IsStagnant(phaseBase string, k int) bool {
	if k < 2 {
		return false
	}
	prev, errPrev := os.ReadFile(filepath.Join(d.LogDir, fmt.Sprintf("%s-attempt-%d.json", phaseBase, k-1)))
	cur, errCur := os.ReadFile(filepath.Join(d.LogDir, fmt.Sprintf("%s-attempt-%d.json", phaseBase, k)))
	if errPrev != nil || errCur != nil {
		return false
	}

	if xxhash.Sum64(prev) == xxhash.Sum64(cur) {
		return true
	}

	return similarity(string(prev), string(cur)) >= d.Threshold
}

// similarity returns a [0,1] ratio based on the longest common subsequence
// of a and b, normalized by the length of the longer string.
func similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	l := lcsLen(a, b)
	longer := len(a)
	if len(b) > longer {
		longer = len(b)
	}
	if longer == 0 {
		return 1.0
	}
	return float64(l) / float64(longer)
}

// lcsLen computes the length of the longest common subsequence of a and b
// using the standard O(len(a)*len(b)) dynamic-programming table, with rows
// reused to keep memory linear in len(b).
func lcsLen(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)

	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
