// Package blockchain implements the chain store: the append-only sequence
// of blocks, candidate validation before append, the finality marker, and
// the two whole-chain scans (plain replay and slash-on-replay).
package blockchain

import (
	"fmt"
	"sync"
	"time"

	"chaincore/internal/coreerrors"
	"chaincore/internal/core"
	"chaincore/internal/leader"
	"chaincore/internal/pow"
	"chaincore/internal/signer"
	"chaincore/internal/staker"
)

// SlashEvent records one validator slashed while replaying the chain.
type SlashEvent struct {
	BlockIndex int64
	Address    string
	Amount     uint64
}

// Chain is the ordered sequence of blocks, guarded by a single mutex per
// the core's fixed lock order (it sits right after governance).
type Chain struct {
	mu              sync.RWMutex
	blocks          []core.Block
	difficulty      int
	finalizedHeight int64
}

// New creates a fresh chain: a freshly PoW-mined genesis block at the
// given difficulty, with every optional field left nil.
func New(difficulty int) *Chain {
	genesis := core.Block{
		Index:        0,
		Timestamp:    time.Now().UnixNano(),
		Transactions: []string{},
		PreviousHash: "0",
		Difficulty:   difficulty,
	}
	genesis.Nonce, genesis.Hash = pow.Mine(genesis.Payload(), difficulty)

	return &Chain{blocks: []core.Block{genesis}, difficulty: difficulty}
}

// Restore rebuilds a Chain from a previously persisted block list and
// finality marker, used when the node starts from a loaded snapshot.
func Restore(blocks []core.Block, finalizedHeight int64, difficulty int) *Chain {
	return &Chain{
		blocks:          append([]core.Block(nil), blocks...),
		difficulty:      difficulty,
		finalizedHeight: finalizedHeight,
	}
}

// LatestHash returns the tip block's hash, or "0" if the chain is empty
// (which only happens transiently before New/Restore populate it).
func (c *Chain) LatestHash() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.blocks) == 0 {
		return "0"
	}
	return c.blocks[len(c.blocks)-1].Hash
}

// Len returns the number of blocks on the chain.
func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.blocks)
}

// Difficulty returns the chain's PoW difficulty.
func (c *Chain) Difficulty() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.difficulty
}

// FinalizedHeight returns the current finality marker.
func (c *Chain) FinalizedHeight() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.finalizedHeight
}

// Blocks returns a defensive copy of the full block list.
func (c *Chain) Blocks() []core.Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]core.Block, len(c.blocks))
	copy(out, c.blocks)
	return out
}

// Block returns the block at height, if present.
func (c *Chain) Block(height int64) (core.Block, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if height < 0 || height >= int64(len(c.blocks)) {
		return core.Block{}, false
	}
	return c.blocks[height], true
}

// CreateBlock builds the next unsigned block (Signature left nil): the
// caller mines its nonce/hash and attaches a signature before Append.
func (c *Chain) CreateBlock(txs []string, validator, validatorPubKey, stakerSetHash string, snapshot []staker.View) core.Block {
	c.mu.RLock()
	idx := int64(len(c.blocks))
	prevHash := c.blocks[len(c.blocks)-1].Hash
	difficulty := c.difficulty
	c.mu.RUnlock()

	snapCopy := append([]staker.View(nil), snapshot...)
	return core.Block{
		Index:              idx,
		Timestamp:          time.Now().UnixNano(),
		Transactions:       txs,
		PreviousHash:       prevHash,
		Difficulty:         difficulty,
		Validator:          &validator,
		ValidatorPublicKey: &validatorPubKey,
		StakerSetHash:      &stakerSetHash,
		StakerSnapshot:     &snapCopy,
	}
}

// Append unconditionally appends block, used after it has already passed
// ValidateCandidate (or been freshly mined and signed locally).
func (c *Chain) Append(block core.Block) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blocks = append(c.blocks, block)
}

// ValidateCandidate checks a proposed next block against the chain tip,
// returning the first failing check's error, or nil if it may be appended.
func (c *Chain) ValidateCandidate(candidate core.Block) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	prev := c.blocks[len(c.blocks)-1]
	_, err, _ := Check(prev, int64(len(c.blocks)), candidate)
	return err
}

// ApplyFinality advances the finality marker to len(blocks)-1-depth when
// the chain is long enough; it never moves the marker backwards.
func (c *Chain) ApplyFinality(depth uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := uint64(len(c.blocks))
	if n <= depth {
		return
	}
	newFinalized := int64(n - 1 - depth)
	if newFinalized > c.finalizedHeight {
		c.finalizedHeight = newFinalized
	}
}

// IsValid replays the entire chain: genesis's PoW, then every non-genesis
// block's full semantic checks. It has no side effects.
func (c *Chain) IsValid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.blocks) == 0 {
		return true
	}
	genesis := c.blocks[0]
	if !pow.VerifyPoW(genesis.Payload(), genesis.Nonce, genesis.Difficulty, genesis.Hash) {
		return false
	}
	for i := 1; i < len(c.blocks); i++ {
		if _, err, _ := Check(c.blocks[i-1], int64(i), c.blocks[i]); err != nil {
			return false
		}
	}
	return true
}

// ValidateAndSlash replays the chain like IsValid, but on a consensus
// fault (wrong validator, bad signature, bad PoW) it slashes the named
// validator in registry and records the event. Structural faults (index
// mismatch, previous_hash mismatch, missing fields, set_hash mismatch)
// report only — they never slash. It stops at the first failing block.
func (c *Chain) ValidateAndSlash(registry *staker.Registry, slashPercent uint64) (bool, []SlashEvent, string) {
	c.mu.RLock()
	blocks := make([]core.Block, len(c.blocks))
	copy(blocks, c.blocks)
	c.mu.RUnlock()

	if len(blocks) == 0 {
		return true, nil, ""
	}
	genesis := blocks[0]
	if !pow.VerifyPoW(genesis.Payload(), genesis.Nonce, genesis.Difficulty, genesis.Hash) {
		return false, nil, reasonFor(0, coreerrors.ErrBadPoW)
	}

	var events []SlashEvent
	for i := 1; i < len(blocks); i++ {
		validator, err, consensusFault := Check(blocks[i-1], int64(i), blocks[i])
		if err == nil {
			continue
		}
		if consensusFault && validator != "" {
			amount := registry.Slash(validator, slashPercent)
			events = append(events, SlashEvent{BlockIndex: int64(i), Address: validator, Amount: amount})
		}
		return false, events, reasonFor(i, err)
	}
	return true, events, ""
}

// Check runs the full candidate-validation pipeline of spec §4.6
// against candidate, assuming it immediately follows prev at expectedIndex.
// It returns the candidate's claimed validator (meaningful only when err
// is a consensus fault) and whether the failure is a consensus fault (as
// opposed to structural).
func Check(prev core.Block, expectedIndex int64, candidate core.Block) (validator string, err error, consensusFault bool) {
	if candidate.Index != expectedIndex {
		return "", coreerrors.ErrIndexMismatch, false
	}
	if candidate.PreviousHash != prev.Hash {
		return "", coreerrors.ErrPrevHashMismatch, false
	}
	if !candidate.HasOptionalFields() {
		return "", coreerrors.ErrMissingFields, false
	}

	validator = *candidate.Validator
	snapshot := *candidate.StakerSnapshot

	if staker.SetHash(snapshot) != *candidate.StakerSetHash {
		return validator, coreerrors.ErrSetHashMismatch, false
	}
	selected, ok := leader.Select(candidate.PreviousHash, snapshot)
	if !ok || selected != validator {
		return validator, coreerrors.ErrWrongValidator, true
	}
	if !signer.Verify(candidate.Hash, *candidate.ValidatorPublicKey, *candidate.Signature) {
		return validator, coreerrors.ErrBadSignature, true
	}
	if !pow.VerifyPoW(candidate.Payload(), candidate.Nonce, candidate.Difficulty, candidate.Hash) {
		return validator, coreerrors.ErrBadPoW, true
	}
	return validator, nil, false
}

func reasonFor(index int, err error) string {
	switch err {
	case coreerrors.ErrBadPoW:
		return fmt.Sprintf("Block %d failed PoW validation", index)
	case coreerrors.ErrBadSignature:
		return fmt.Sprintf("Block %d failed signature validation", index)
	case coreerrors.ErrWrongValidator:
		return fmt.Sprintf("Block %d has an invalid validator selection", index)
	case coreerrors.ErrSetHashMismatch:
		return fmt.Sprintf("Block %d has a staker set hash mismatch", index)
	case coreerrors.ErrMissingFields:
		return fmt.Sprintf("Block %d is missing required fields", index)
	case coreerrors.ErrPrevHashMismatch:
		return fmt.Sprintf("Block %d has a previous hash mismatch", index)
	case coreerrors.ErrIndexMismatch:
		return fmt.Sprintf("Block %d has an index mismatch", index)
	default:
		return fmt.Sprintf("Block %d failed validation: %v", index, err)
	}
}
