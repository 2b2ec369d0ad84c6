// Package diffview renders the divergence between a local file and its
// vault item so the operator can resolve conflicts manually.
package diffview

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	binarySampleSize   = 8192 // Bytes to sample for text/binary detection
	binaryThresholdPct = 10   // Max % non-printable chars for text files
)

// IsText determines if content is likely text rather than binary.
//
// Detection heuristic (in order):
//  1. Null bytes present → binary
//  2. Invalid UTF-8 → binary
//  3. >10% non-printable control chars → binary
func IsText(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	if bytes.IndexByte(data, 0) != -1 {
		return false
	}

	sampleSize := binarySampleSize
	if len(data) < sampleSize {
		sampleSize = len(data)
	}
	sample := data[:sampleSize]

	if !utf8.Valid(sample) {
		return false
	}

	nonPrintable := 0
	for _, b := range sample {
		if b < 32 && b != 9 && b != 10 && b != 13 {
			nonPrintable++
		}
		if b == 127 {
			nonPrintable++
		}
	}
	threshold := len(sample) * binaryThresholdPct / 100
	return nonPrintable <= threshold
}

// Unified generates a unified diff between the vault version and the local
// version of an item. Returns "" when the contents are identical; binary
// content is summarized, never dumped.
func Unified(name string, vaultData, localData []byte) string {
	if bytes.Equal(vaultData, localData) {
		return ""
	}
	if !IsText(vaultData) || !IsText(localData) {
		return fmt.Sprintf("Binary item %s differs\n", name)
	}

	dmp := diffmatchpatch.New()

	// Line-mode diff for readable output on config files.
	vaultStr, localStr := string(vaultData), string(localData)
	a, b, lineArray := dmp.DiffLinesToChars(vaultStr, localStr)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	patches := dmp.PatchMake(vaultStr, diffs)
	if len(patches) == 0 {
		return ""
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("--- vault/%s\n", name))
	result.WriteString(fmt.Sprintf("+++ local/%s\n", name))
	result.WriteString(dmp.PatchToText(patches))
	return result.String()
}
