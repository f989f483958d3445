// Package ledger is the narrow balance interface the consensus core uses
// for stake custody: debiting an address's free balance into the staking
// pool on deposit, crediting it back on withdraw. It is deliberately not
// the fungible token ledger subsystem (out of scope per the consensus
// core's spec) — just the slice of it the staker registry touches.
package ledger

import (
	"sync"

	"chaincore/internal/coreerrors"
)

// StakingPool is the distinguished account stake is transferred to on
// deposit and back from on withdraw.
const StakingPool = "staking-pool"

// Ledger holds per-address balances guarded by a single mutex; it sits
// after "stakers" and before "peers" in the core's fixed lock order: the
// staker registry calls into it while holding its own lock.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]uint64
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{balances: make(map[string]uint64)}
}

// Credit adds amount to address's balance, creating the entry if absent.
func (l *Ledger) Credit(address string, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[address] += amount
}

// Debit subtracts amount from address's balance, failing if the balance is
// insufficient. No partial debit occurs on failure.
func (l *Ledger) Debit(address string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[address] < amount {
		return coreerrors.ErrInsufficientBalance
	}
	l.balances[address] -= amount
	return nil
}

// Balance returns address's current balance, 0 if it has never appeared.
func (l *Ledger) Balance(address string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[address]
}

// Transfer moves amount from `from` to `to` atomically: it fails (and
// mutates nothing) if `from` lacks sufficient balance.
func (l *Ledger) Transfer(from, to string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[from] < amount {
		return coreerrors.ErrInsufficientBalance
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}

// Snapshot returns a copy of all balances, the staking pool's included,
// suitable for embedding in the whole-state snapshot codec.
func (l *Ledger) Snapshot() map[string]uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]uint64, len(l.balances))
	for addr, bal := range l.balances {
		out[addr] = bal
	}
	return out
}

// Restore replaces the ledger's balances wholesale, used when loading a
// persisted snapshot.
func (l *Ledger) Restore(balances map[string]uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances = make(map[string]uint64, len(balances))
	for addr, bal := range balances {
		l.balances[addr] = bal
	}
}
