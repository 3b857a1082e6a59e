// Package simhash computes locality-sensitive 64-bit fingerprints of
// extracted text. Pages with near-identical content (mirrors, print
// views, tracking-parameter variants that slipped past URL dedup) land
// within a small Hamming distance of each other.
package simhash

import (
	"hash/fnv"
	"math/bits"
	"strings"
	"unicode"
)

// DefaultThreshold is the Hamming distance at or below which two texts
// are treated as near-duplicates.
const DefaultThreshold = 3

// Fingerprint computes a 64-bit SimHash of the given text using FNV-64a
// over case-folded word tokens with bit-vector accumulation.
func Fingerprint(text string) uint64 {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	if len(words) == 0 {
		return 0
	}

	var vector [64]int
	for _, word := range words {
		h := fnv.New64a()
		h.Write([]byte(word))
		hash := h.Sum64()

		for i := 0; i < 64; i++ {
			if hash&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}

	var fingerprint uint64
	for i := 0; i < 64; i++ {
		if vector[i] > 0 {
			fingerprint |= 1 << uint(i)
		}
	}
	return fingerprint
}

// Distance returns the Hamming distance between two fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Similar reports whether two fingerprints are within threshold bits of
// each other.
func Similar(a, b uint64, threshold int) bool {
	return Distance(a, b) <= threshold
}

// Index tracks the fingerprints seen during one job run.
// It is not safe for concurrent use; callers synchronize externally.
type Index struct {
	seen      []uint64
	threshold int
}

// NewIndex creates an Index with the given near-duplicate threshold.
func NewIndex(threshold int) *Index {
	if threshold < 0 {
		threshold = DefaultThreshold
	}
	return &Index{threshold: threshold}
}

// Add records the text's fingerprint and reports whether it is a
// near-duplicate of anything already recorded. Empty text never matches.
func (ix *Index) Add(text string) bool {
	fp := Fingerprint(text)
	if fp == 0 {
		return false
	}
	for _, prev := range ix.seen {
		if Similar(fp, prev, ix.threshold) {
			return true
		}
	}
	ix.seen = append(ix.seen, fp)
	return false
}
