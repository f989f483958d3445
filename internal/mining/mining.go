// Package mining implements the mining coordinator: it produces the next
// signed block from the chain tip, the live staker registry, and pending
// transactions. Mining is single-flight — the coordinator's own lock
// serializes the whole read-tip/select-leader/append sequence so the hash
// used as the leader-selection seed always matches the predecessor of the
// block actually emitted.
package mining

import (
	"chaincore/internal/blockchain"
	"chaincore/internal/core"
	"chaincore/internal/coreerrors"
	"chaincore/internal/leader"
	"chaincore/internal/mempool"
	"chaincore/internal/pow"
	"chaincore/internal/signer"
	"chaincore/internal/staker"
	"sync"
)

// Broadcaster hands a freshly appended block off to the gossip engine.
// Implementations must not block the caller; MineNext invokes it in a
// detached goroutine after releasing its lock.
type Broadcaster interface {
	Broadcast(block core.Block)
}

// Coordinator produces blocks. It is safe for concurrent use; MineNext
// calls are serialized against each other.
type Coordinator struct {
	mu          sync.Mutex
	chain       *blockchain.Chain
	registry    *staker.Registry
	pending     *mempool.Pending
	broadcaster Broadcaster
}

// NewCoordinator wires a Coordinator to its chain, staker registry, and
// pending transaction queue. broadcaster may be nil, in which case mined
// blocks are simply not gossiped (useful for tests and single-node setups
// without peers).
func NewCoordinator(chain *blockchain.Chain, registry *staker.Registry, pending *mempool.Pending, broadcaster Broadcaster) *Coordinator {
	return &Coordinator{
		chain:       chain,
		registry:    registry,
		pending:     pending,
		broadcaster: broadcaster,
	}
}

// MineNext produces, mines, signs, and appends the next block, then
// applies finality at finalityDepth. On success it returns the appended
// block. coreerrors.ErrNothingToMine is an informational outcome, not a
// failure: the chain has blocks beyond genesis and there is simply nothing
// pending to mine.
func (c *Coordinator) MineNext(finalityDepth uint64) (*core.Block, error) {
	c.mu.Lock()

	seed := c.chain.LatestHash()
	snapshot := c.registry.Snapshot()
	setHash := staker.SetHash(snapshot)

	validatorAddr, ok := leader.Select(seed, snapshot)
	if !ok {
		c.mu.Unlock()
		return nil, coreerrors.ErrNoValidators
	}

	selected, ok := c.registry.Get(validatorAddr)
	if !ok || selected.PublicKey == nil || selected.PrivateKey == nil {
		c.mu.Unlock()
		return nil, coreerrors.ErrMissingKeys
	}

	txs := c.pending.DrainAll()
	if len(txs) == 0 {
		if c.chain.Len() > 1 {
			c.mu.Unlock()
			return nil, coreerrors.ErrNothingToMine
		}
		txs = []string{
			"First mined block - Blockchain is now active!",
			"Validator: " + validatorAddr,
		}
	}

	block := c.chain.CreateBlock(txs, validatorAddr, *selected.PublicKey, setHash, snapshot)
	block.Nonce, block.Hash = pow.Mine(block.Payload(), block.Difficulty)

	sig, err := signer.Sign(block.Hash, *selected.PrivateKey)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	block.Signature = &sig

	c.chain.Append(block)
	c.chain.ApplyFinality(finalityDepth)

	c.mu.Unlock()

	if c.broadcaster != nil {
		go c.broadcaster.Broadcast(block)
	}

	return &block, nil
}
