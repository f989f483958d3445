// Package slashing implements the evidence-driven arbiter: given a
// specific historical block index, it re-derives whether that block's
// validator misbehaved, independent of the chain-wide scan the chain
// store performs in ValidateAndSlash.
package slashing

import (
	"sync"
	"time"

	"chaincore/internal/blockchain"
	"chaincore/internal/coreerrors"
)

// Evidence is a proven fault against a specific block's validator,
// attributed to whoever triggered the check (a peer address, "self" for
// the node's own periodic scan, or similar).
type Evidence struct {
	Validator string
	Reason    string
	Reporter  string
	Timestamp int64
}

// EvaluateEvidence re-checks the block at blockIndex against its
// predecessor. Index 0 (genesis) is always rejected. If any of
// previous_hash mismatch, missing fields, set_hash mismatch, selection
// mismatch, bad signature, or bad PoW trips, it returns Evidence naming
// the block's claimed validator and the reason, attributed to reporter.
// If the block is well-formed, it returns ErrNotSlashable and no
// Evidence.
//
// This function itself does not mutate the registry — callers apply
// registry.Slash(evidence.Validator, governance.SlashPercent) and append a
// SlashEvidence record once they've decided to act on the evidence.
func EvaluateEvidence(chain *blockchain.Chain, blockIndex int64, reporter string) (Evidence, error) {
	if blockIndex == 0 {
		return Evidence{}, coreerrors.ErrCannotSlashGenesis
	}

	target, ok := chain.Block(blockIndex)
	if !ok {
		return Evidence{}, coreerrors.ErrBlockNotFound
	}
	predecessor, ok := chain.Block(blockIndex - 1)
	if !ok {
		return Evidence{}, coreerrors.ErrBlockNotFound
	}

	validator, err, _ := blockchain.Check(predecessor, blockIndex, target)
	if err == nil {
		return Evidence{}, coreerrors.ErrNotSlashable
	}
	// Check leaves the validator empty on structural faults; name the
	// block's claimed validator whenever it carries one.
	if validator == "" && target.Validator != nil {
		validator = *target.Validator
	}

	return Evidence{
		Validator: validator,
		Reason:    err.Error(),
		Reporter:  reporter,
		Timestamp: time.Now().Unix(),
	}, nil
}

// Record is one applied slash, kept in Log for audit and for the
// whole-state snapshot codec. It is distinct from Evidence: Evidence is
// the arbiter's verdict before a caller decides to act on it, Record is
// what actually happened to the registry as a result.
type Record struct {
	BlockIndex int64  `json:"blockIndex"`
	Validator  string `json:"validator"`
	Reason     string `json:"reason"`
	Reporter   string `json:"reporter"`
	Amount     uint64 `json:"amount"`
	Timestamp  int64  `json:"timestamp"`
}

// Log is the append-only history of slashes actually applied to the
// registry. It sits after "peers" and before "metrics" in the core's
// fixed lock order.
type Log struct {
	mu      sync.Mutex
	records []Record
}

// NewLog creates an empty slash log.
func NewLog() *Log {
	return &Log{records: make([]Record, 0)}
}

// Append records one applied slash.
func (l *Log) Append(r Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, r)
}

// All returns a copy of the full slash history, oldest first.
func (l *Log) All() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// Restore replaces the log's contents wholesale, used when the node
// starts from a loaded snapshot.
func (l *Log) Restore(records []Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append([]Record(nil), records...)
}
