// Package pow implements the proof-of-work gate that sits on top of the
// stake-weighted leader selection: every block, regardless of who proposed
// it, must also carry a nonce that pushes its hash below a difficulty
// target. It is a spam/ordering gate, not an independent consensus
// mechanism — PoS still decides who is allowed to propose.
package pow

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Mine searches nonces starting at 0, incrementing by 1, until
// sha256(payload || decimal(nonce)) begins with difficulty hex zero
// characters. It returns the first nonce/hash pair that satisfies the
// target. Mining runs to completion; there is no cooperative cancellation
// point inside the search loop.
func Mine(payload []byte, difficulty int) (nonce uint64, hash string) {
	prefix := zeroPrefix(difficulty)
	for n := uint64(0); ; n++ {
		h := digest(payload, n)
		if hasPrefix(h, prefix) {
			return n, h
		}
	}
}

// VerifyPoW recomputes the hash from payload and nonce and checks both
// that it equals the claimed hash and that it satisfies the difficulty
// prefix.
func VerifyPoW(payload []byte, nonce uint64, difficulty int, claimedHash string) bool {
	h := digest(payload, nonce)
	if h != claimedHash {
		return false
	}
	return hasPrefix(h, zeroPrefix(difficulty))
}

func digest(payload []byte, nonce uint64) string {
	buf := make([]byte, 0, len(payload)+20)
	buf = append(buf, payload...)
	buf = append(buf, []byte(strconv.FormatUint(nonce, 10))...)
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

func zeroPrefix(difficulty int) string {
	if difficulty <= 0 {
		return ""
	}
	b := make([]byte, difficulty)
	for i := range b {
		b[i] = '0'
	}
	return string(b)
}

func hasPrefix(hash, prefix string) bool {
	if len(hash) < len(prefix) {
		return false
	}
	return hash[:len(prefix)] == prefix
}
