// Package drift computes content fingerprints and classifies, per item,
// which direction data should flow during a sync.
//
// The four-way classification against the last-synced baseline, not a
// timestamp comparison, is what prevents a sync from silently destroying
// unsynced local or remote changes.
package drift

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
)

// SentinelMissing is the reserved fingerprint for absent content. It can
// never collide with a real hash because content hashes are 64 hex chars.
const SentinelMissing = "missing"

// Direction is the outcome of classifying one item.
type Direction int

const (
	NoOp Direction = iota
	Push
	Pull
	Conflict
)

func (d Direction) String() string {
	switch d {
	case Push:
		return "push"
	case Pull:
		return "pull"
	case Conflict:
		return "conflict"
	default:
		return "none"
	}
}

// HashContent returns the sha256 hex fingerprint of content.
func HashContent(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// HashFile fingerprints a local file. A missing file yields the sentinel,
// distinct from any content hash, so deletions are detectable.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return SentinelMissing, nil
		}
		return "", err
	}
	return HashContent(data), nil
}

// Baseline is the last-known pair of fingerprints recorded after the
// previous successful push or pull. A nil Baseline means the item has
// never been synced.
type Baseline struct {
	LocalHash string
	VaultHash string
}

// Classify decides the flow direction for one item.
//
// With a baseline, each side is compared against its last-known hash:
// only local changed means push, only vault changed means pull, both
// changed to different content is a conflict, neither is a no-op. Both
// changed to identical content needs no transfer, only a new baseline.
//
// Without a baseline (first-time item), a present local file counts as
// "local changed" so the first push works without prior state; an item
// present on both sides with different content is a conflict.
func Classify(baseline *Baseline, localHash, vaultHash string) Direction {
	if baseline == nil {
		localPresent := localHash != SentinelMissing
		vaultPresent := vaultHash != SentinelMissing
		switch {
		case localPresent && !vaultPresent:
			return Push
		case !localPresent && vaultPresent:
			return Pull
		case localPresent && vaultPresent:
			if localHash == vaultHash {
				return NoOp
			}
			return Conflict
		default:
			return NoOp
		}
	}

	localChanged := localHash != baseline.LocalHash
	vaultChanged := vaultHash != baseline.VaultHash

	switch {
	case localChanged && vaultChanged:
		if localHash == vaultHash {
			return NoOp
		}
		return Conflict
	case localChanged:
		return Push
	case vaultChanged:
		return Pull
	default:
		return NoOp
	}
}
