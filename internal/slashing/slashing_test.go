package slashing_test

import (
	"errors"
	"testing"

	"chaincore/internal/blockchain"
	"chaincore/internal/coreerrors"
	"chaincore/internal/ledger"
	"chaincore/internal/leader"
	"chaincore/internal/pow"
	"chaincore/internal/signer"
	"chaincore/internal/slashing"
	"chaincore/internal/staker"
)

func TestEvaluateEvidenceRejectsGenesis(t *testing.T) {
	chain := blockchain.New(1)
	_, err := slashing.EvaluateEvidence(chain, 0, "self")
	if !errors.Is(err, coreerrors.ErrCannotSlashGenesis) {
		t.Fatalf("expected ErrCannotSlashGenesis, got %v", err)
	}
}

func TestEvaluateEvidenceNotSlashableOnWellFormedBlock(t *testing.T) {
	chain := blockchain.New(1)
	l := ledger.New()
	l.Credit("A", 10)
	reg := staker.New(l)
	pub, priv, _ := signer.GenerateKeyPair()
	if err := reg.Deposit("A", 10, &pub, &priv); err != nil {
		t.Fatalf("Deposit: %v", err)
	}

	seed := chain.LatestHash()
	snapshot := reg.Snapshot()
	validator, _ := leader.Select(seed, snapshot)
	s, _ := reg.Get(validator)
	setHash := staker.SetHash(snapshot)
	block := chain.CreateBlock([]string{"tx"}, validator, *s.PublicKey, setHash, snapshot)
	block.Nonce, block.Hash = pow.Mine(block.Payload(), block.Difficulty)
	sig, _ := signer.Sign(block.Hash, *s.PrivateKey)
	block.Signature = &sig
	chain.Append(block)

	_, err := slashing.EvaluateEvidence(chain, 1, "self")
	if !errors.Is(err, coreerrors.ErrNotSlashable) {
		t.Fatalf("expected ErrNotSlashable, got %v", err)
	}
}

func TestEvaluateEvidenceDetectsBadSignature(t *testing.T) {
	chain := blockchain.New(1)
	l := ledger.New()
	l.Credit("A", 10)
	reg := staker.New(l)
	pub, priv, _ := signer.GenerateKeyPair()
	reg.Deposit("A", 10, &pub, &priv)

	seed := chain.LatestHash()
	snapshot := reg.Snapshot()
	validator, _ := leader.Select(seed, snapshot)
	s, _ := reg.Get(validator)
	setHash := staker.SetHash(snapshot)
	block := chain.CreateBlock([]string{"tx"}, validator, *s.PublicKey, setHash, snapshot)
	block.Nonce, block.Hash = pow.Mine(block.Payload(), block.Difficulty)
	badSig := "00000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000000"
	block.Signature = &badSig
	chain.Append(block)

	ev, err := slashing.EvaluateEvidence(chain, 1, "peer-b")
	if err != nil {
		t.Fatalf("expected evidence, got error %v", err)
	}
	if ev.Validator != validator {
		t.Fatalf("expected evidence against %s, got %s", validator, ev.Validator)
	}
	if ev.Reporter != "peer-b" {
		t.Fatalf("expected reporter to be threaded through, got %q", ev.Reporter)
	}
}

func TestLogAppendAndRestore(t *testing.T) {
	log := slashing.NewLog()
	log.Append(slashing.Record{BlockIndex: 1, Validator: "A", Reason: "bad signature", Reporter: "self", Amount: 1, Timestamp: 100})
	log.Append(slashing.Record{BlockIndex: 2, Validator: "B", Reason: "bad pow", Reporter: "peer-c", Amount: 2, Timestamp: 200})

	all := log.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 records, got %d", len(all))
	}
	if all[0].Validator != "A" || all[1].Validator != "B" {
		t.Fatalf("expected insertion order preserved, got %+v", all)
	}
	if all[0].Reporter != "self" || all[1].Reporter != "peer-c" {
		t.Fatalf("expected reporter to round-trip, got %+v", all)
	}

	restored := slashing.NewLog()
	restored.Restore(all)
	if len(restored.All()) != 2 {
		t.Fatal("expected restored log to carry both records")
	}
}
