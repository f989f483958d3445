package rpcserver_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"chaincore/internal/blockchain"
	"chaincore/internal/core"
	"chaincore/internal/governance"
	"chaincore/internal/gossip"
	"chaincore/internal/ledger"
	"chaincore/internal/leader"
	"chaincore/internal/pow"
	"chaincore/internal/rpcserver"
	"chaincore/internal/signer"
	"chaincore/internal/staker"
)

func mineOne(t *testing.T, chain *blockchain.Chain, reg *staker.Registry) core.Block {
	t.Helper()
	seed := chain.LatestHash()
	snapshot := reg.Snapshot()
	validator, ok := leader.Select(seed, snapshot)
	if !ok {
		t.Fatal("no validator selected")
	}
	s, _ := reg.Get(validator)
	setHash := staker.SetHash(snapshot)
	block := chain.CreateBlock([]string{"tx"}, validator, *s.PublicKey, setHash, snapshot)
	block.Nonce, block.Hash = pow.Mine(block.Payload(), block.Difficulty)
	sig, err := signer.Sign(block.Hash, *s.PrivateKey)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	block.Signature = &sig
	return block
}

func newRig(t *testing.T) (*blockchain.Chain, *staker.Registry) {
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
	return chain, reg
}

func staticParams() governance.Params {
	return governance.Default()
}

func TestHandleBlocksAcceptsBatch(t *testing.T) {
	chain, reg := newRig(t)
	genesisOnly := blockchain.Restore(chain.Blocks()[:1], 0, 1)
	engine := gossip.New(genesisOnly, "node-2", "")
	srv := rpcserver.NewServer(engine, staticParams, rpcserver.Config{Port: 0})

	b1 := mineOne(t, chain, reg)
	body, _ := json.Marshal([]core.Block{b1})
	req := httptest.NewRequest(http.MethodPost, "/p2p/blocks", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler := srv.Handler()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if genesisOnly.Len() != 2 {
		t.Fatalf("expected 2 blocks after ingest, got %d", genesisOnly.Len())
	}
}

func TestHandleRegisterPeer(t *testing.T) {
	chain, _ := newRig(t)
	engine := gossip.New(chain, "node-1", "")
	srv := rpcserver.NewServer(engine, staticParams, rpcserver.Config{Port: 0})

	body, _ := json.Marshal(map[string]string{"address": "http://peer-b"})
	req := httptest.NewRequest(http.MethodPost, "/p2p/peers/register", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler := srv.Handler()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := engine.Peers(); len(got) != 1 || got[0] != "http://peer-b" {
		t.Fatalf("expected peer registered, got %v", got)
	}
}

func TestAuthRejectsBadToken(t *testing.T) {
	chain, _ := newRig(t)
	engine := gossip.New(chain, "node-1", "secret")
	srv := rpcserver.NewServer(engine, staticParams, rpcserver.Config{Port: 0})

	body, _ := json.Marshal(map[string]string{"address": "http://peer-b"})
	req := httptest.NewRequest(http.MethodPost, "/p2p/peers/register", bytes.NewReader(body))
	req.Header.Set("x-p2p-token", "wrong")
	w := httptest.NewRecorder()

	handler := srv.Handler()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
