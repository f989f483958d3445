// Package staker implements the validator registry: an ordered set of
// stakers with stake and keys, mutated by deposits, withdraws, and the
// slashing arbiter. Order is significant — it is part of the staker-set
// commitment hash that binds leader selection to a specific registry state.
package staker

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math/big"
	"sync"

	"chaincore/internal/coreerrors"
	"chaincore/internal/ledger"
)

// Staker is one entry in the registry, keys held only locally.
type Staker struct {
	Address    string
	Stake      uint64
	PublicKey  *string
	PrivateKey *string
}

// View is the private-key-free projection of a Staker embedded in a
// block's staker snapshot and sent over the wire.
type View struct {
	Address   string  `json:"address"`
	Stake     uint64  `json:"stake"`
	PublicKey *string `json:"publicKey,omitempty"`
}

// Registry is the live, mutable validator set.
type Registry struct {
	mu     sync.Mutex
	order  []string
	byAddr map[string]*Staker
	ledger *ledger.Ledger
}

// New creates an empty registry backed by ledger for stake custody
// transfers to and from the staking pool.
func New(l *ledger.Ledger) *Registry {
	return &Registry{
		order:  make([]string, 0),
		byAddr: make(map[string]*Staker),
		ledger: l,
	}
}

// Deposit moves amount from address's ledger balance into the staking
// pool and credits its stake. A zero amount always fails. An address
// appearing for the first time must supply both a public and private key
// or the call fails with ErrMissingKeys and mutates nothing; an existing
// address simply adds to its stake, overwriting keys only when supplied.
func (r *Registry) Deposit(address string, amount uint64, pub, priv *string) error {
	if amount == 0 {
		return coreerrors.ErrZeroAmount
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, known := r.byAddr[address]
	if !known && (pub == nil || priv == nil) {
		return coreerrors.ErrMissingKeys
	}

	if err := r.ledger.Transfer(address, ledger.StakingPool, amount); err != nil {
		return err
	}

	if known {
		existing.Stake += amount
		if pub != nil {
			existing.PublicKey = pub
		}
		if priv != nil {
			existing.PrivateKey = priv
		}
		return nil
	}

	r.byAddr[address] = &Staker{Address: address, Stake: amount, PublicKey: pub, PrivateKey: priv}
	r.order = append(r.order, address)
	return nil
}

// Withdraw moves amount from the staking pool back to address and reduces
// its stake, removing the entry entirely when its stake reaches zero.
func (r *Registry) Withdraw(address string, amount uint64) error {
	if amount == 0 {
		return coreerrors.ErrZeroAmount
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, known := r.byAddr[address]
	if !known {
		return coreerrors.ErrUnknownStaker
	}
	if s.Stake < amount {
		return coreerrors.ErrInsufficientStake
	}
	if err := r.ledger.Transfer(ledger.StakingPool, address, amount); err != nil {
		return err
	}

	s.Stake -= amount
	if s.Stake == 0 {
		delete(r.byAddr, address)
		r.removeFromOrder(address)
	}
	return nil
}

// Slash reduces address's stake by percent percent (saturating at zero)
// and returns the amount removed. It never touches the token ledger — the
// slashed stake is simply burned from the pool's perspective of this
// staker. Returns 0, with no mutation, if address is not registered.
func (r *Registry) Slash(address string, percent uint64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, known := r.byAddr[address]
	if !known {
		return 0
	}

	amount := new(big.Int).Mul(new(big.Int).SetUint64(s.Stake), new(big.Int).SetUint64(percent))
	amount.Div(amount, big.NewInt(100))
	slashed := amount.Uint64()
	if slashed > s.Stake {
		slashed = s.Stake
	}
	s.Stake -= slashed
	return slashed
}

// Get returns the live staker entry for address, if registered.
func (r *Registry) Get(address string) (Staker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byAddr[address]
	if !ok {
		return Staker{}, false
	}
	return *s, true
}

// Snapshot returns an ordered, private-key-free copy of the registry,
// suitable for embedding in a block or sending over the wire.
func (r *Registry) Snapshot() []View {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]View, 0, len(r.order))
	for _, addr := range r.order {
		s := r.byAddr[addr]
		out = append(out, View{Address: s.Address, Stake: s.Stake, PublicKey: s.PublicKey})
	}
	return out
}

// Export returns a full, ordered copy of the registry including private
// keys, for the whole-state snapshot codec. Unlike Snapshot, this is not
// safe to send over the wire or embed in a block.
func (r *Registry) Export() []Staker {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Staker, 0, len(r.order))
	for _, addr := range r.order {
		out = append(out, *r.byAddr[addr])
	}
	return out
}

// Restore rebuilds a Registry from a previously exported, ordered staker
// list, used when the node starts from a loaded snapshot.
func Restore(l *ledger.Ledger, stakers []Staker) *Registry {
	r := &Registry{
		order:  make([]string, 0, len(stakers)),
		byAddr: make(map[string]*Staker, len(stakers)),
		ledger: l,
	}
	for i := range stakers {
		s := stakers[i]
		r.byAddr[s.Address] = &s
		r.order = append(r.order, s.Address)
	}
	return r
}

func (r *Registry) removeFromOrder(address string) {
	for i, addr := range r.order {
		if addr == address {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

// SetHash computes the staker-set commitment: SHA256 over the
// concatenation, in order, of address bytes, the 8-byte big-endian stake,
// and the public key bytes when present, for each snapshot entry.
func SetHash(snapshot []View) string {
	h := sha256.New()
	var stakeBuf [8]byte
	for _, v := range snapshot {
		h.Write([]byte(v.Address))
		binary.BigEndian.PutUint64(stakeBuf[:], v.Stake)
		h.Write(stakeBuf[:])
		if v.PublicKey != nil {
			if pubBytes, err := hex.DecodeString(*v.PublicKey); err == nil {
				h.Write(pubBytes)
			}
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
