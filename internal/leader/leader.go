// Package leader implements deterministic stake-weighted leader selection:
// given a seed (the previous block's hash) and a staker snapshot, it picks
// the validator entitled to propose the next block. This is the crux of
// the consensus guarantee — selection must be pure and depend only on its
// inputs, never on wall-clock time, randomness, or network order.
package leader

import (
	"crypto/sha256"
	"encoding/binary"

	"chaincore/internal/staker"
)

// Select returns the address chosen to propose the next block given seed
// and snapshot, or "", false if the snapshot carries no stake at all.
//
// total := sum(stake_i). s := big-endian-u64(sha256(seed)[0:8]) mod total.
// Walking snapshot in order, the first entry whose running prefix sum
// strictly exceeds s wins — giving every staker a selection probability
// proportional to its share of total stake.
func Select(seed string, snapshot []staker.View) (string, bool) {
	var total uint64
	for _, v := range snapshot {
		total += v.Stake
	}
	if total == 0 {
		return "", false
	}

	digest := sha256.Sum256([]byte(seed))
	s := binary.BigEndian.Uint64(digest[:8]) % total

	var cumulative uint64
	for _, v := range snapshot {
		cumulative += v.Stake
		if s < cumulative {
			return v.Address, true
		}
	}
	// Unreachable given total > 0 and s < total, but guards against any
	// future floating-point-style rounding changes to the walk above.
	return snapshot[len(snapshot)-1].Address, true
}
