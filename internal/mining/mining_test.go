package mining_test

import (
	"errors"
	"testing"
	"time"

	"chaincore/internal/blockchain"
	"chaincore/internal/core"
	"chaincore/internal/coreerrors"
	"chaincore/internal/ledger"
	"chaincore/internal/mempool"
	"chaincore/internal/mining"
	"chaincore/internal/signer"
	"chaincore/internal/staker"
)

func newRig(t *testing.T) (*blockchain.Chain, *staker.Registry, *mempool.Pending) {
	t.Helper()
	chain := blockchain.New(1)
	l := ledger.New()
	l.Credit("A", 10)
	reg := staker.New(l)
	pub, priv, err := signer.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair: %v", err)
	}
	if err := reg.Deposit("A", 10, &pub, &priv); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	return chain, reg, mempool.New()
}

func TestMineNextBootstrapsOnEmptyPending(t *testing.T) {
	chain, reg, pending := newRig(t)
	coord := mining.NewCoordinator(chain, reg, pending, nil)

	block, err := coord.MineNext(6)
	if err != nil {
		t.Fatalf("MineNext: %v", err)
	}
	if block.Validator == nil || *block.Validator != "A" {
		t.Fatalf("expected validator A, got %+v", block.Validator)
	}
	want := []string{"First mined block - Blockchain is now active!", "Validator: A"}
	if len(block.Transactions) != 2 || block.Transactions[0] != want[0] || block.Transactions[1] != want[1] {
		t.Fatalf("unexpected bootstrap transactions: %v", block.Transactions)
	}
	if !chain.IsValid() {
		t.Fatal("chain must be valid after MineNext")
	}
}

func TestMineNextNothingToMineAfterBootstrap(t *testing.T) {
	chain, reg, pending := newRig(t)
	coord := mining.NewCoordinator(chain, reg, pending, nil)

	if _, err := coord.MineNext(6); err != nil {
		t.Fatalf("first MineNext: %v", err)
	}
	_, err := coord.MineNext(6)
	if !errors.Is(err, coreerrors.ErrNothingToMine) {
		t.Fatalf("expected ErrNothingToMine, got %v", err)
	}
}

func TestMineNextIncludesPendingTransactions(t *testing.T) {
	chain, reg, pending := newRig(t)
	pending.Add("transfer 5 from X to Y")
	coord := mining.NewCoordinator(chain, reg, pending, nil)

	block, err := coord.MineNext(6)
	if err != nil {
		t.Fatalf("MineNext: %v", err)
	}
	if len(block.Transactions) != 1 || block.Transactions[0] != "transfer 5 from X to Y" {
		t.Fatalf("expected pending transaction carried into block, got %v", block.Transactions)
	}
	if pending.Len() != 0 {
		t.Fatal("pending queue must be drained after mining")
	}
}

func TestMineNextNoValidators(t *testing.T) {
	chain := blockchain.New(1)
	l := ledger.New()
	reg := staker.New(l)
	pending := mempool.New()
	coord := mining.NewCoordinator(chain, reg, pending, nil)

	_, err := coord.MineNext(6)
	if !errors.Is(err, coreerrors.ErrNoValidators) {
		t.Fatalf("expected ErrNoValidators, got %v", err)
	}
}

type broadcastFunc func(core.Block)

func (f broadcastFunc) Broadcast(block core.Block) { f(block) }

func TestMineNextBroadcastsAsynchronously(t *testing.T) {
	chain, reg, pending := newRig(t)
	done := make(chan core.Block, 1)
	coord := mining.NewCoordinator(chain, reg, pending, broadcastFunc(func(b core.Block) { done <- b }))

	mined, err := coord.MineNext(6)
	if err != nil {
		t.Fatalf("MineNext: %v", err)
	}

	select {
	case got := <-done:
		if got.Hash != mined.Hash {
			t.Fatalf("broadcaster saw a different block: %s vs %s", got.Hash, mined.Hash)
		}
	case <-time.After(time.Second):
		t.Fatal("expected broadcaster to be invoked within a second")
	}
}
