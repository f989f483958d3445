// ChainCore node — hybrid PoW/PoS validator.
// Mines blocks when this node's staker wins leader selection, gossips
// them to peers, and serves the inbound P2P HTTP surface.
package main

import (
	"errors"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"chaincore/internal/blockchain"
	"chaincore/internal/coreerrors"
	"chaincore/internal/governance"
	"chaincore/internal/gossip"
	"chaincore/internal/ledger"
	"chaincore/internal/logging"
	"chaincore/internal/mempool"
	"chaincore/internal/mining"
	"chaincore/internal/rpcserver"
	"chaincore/internal/slashing"
	"chaincore/internal/snapshot"
	"chaincore/internal/staker"
	"chaincore/internal/storage"
	"chaincore/internal/wallet"
)

func main() {
	dataDir := flag.String("datadir", "./chaincore-data", "Data directory for the node's snapshot and keys")
	difficulty := flag.Int("difficulty", 4, "Proof-of-work difficulty for a freshly created chain")
	slashPercent := flag.Uint64("slash-percent", governance.Default().SlashPercent, "Stake percentage removed on a proven fault")
	finalityDepth := flag.Uint64("finality-depth", governance.Default().FinalityDepth, "Blocks that must elapse before a block is considered final")
	p2pPort := flag.Int("p2p-port", 7946, "Port the P2P HTTP surface listens on")
	peerToken := flag.String("peer-token", "", "Shared secret required of inbound peer requests (x-p2p-token); empty disables auth")
	peerList := flag.String("peers", "", "Comma-separated bootstrap peer base URLs")
	nodeID := flag.String("node-id", "", "Node identifier held by the gossip engine (defaults to the staker address); outbound gossip posts bare blocks without it")
	mineInterval := flag.Duration("mine-interval", 5*time.Second, "How often to attempt mining the next block")
	flag.Parse()

	log := logging.New("chaincored")

	db, err := storage.NewLevelDB(storage.Config{DataDir: filepath.Join(*dataDir, "leveldb")})
	if err != nil {
		log.Fatalf("failed to open block index: %v", err)
	}
	defer db.Close()

	statePath := filepath.Join(*dataDir, "state.json")
	state, err := snapshot.Load(statePath)
	if err != nil {
		log.Fatalf("failed to load snapshot: %v", err)
	}

	w, err := loadOrCreateWallet(*dataDir, log)
	if err != nil {
		log.Fatalf("failed to provision wallet: %v", err)
	}
	if *nodeID == "" {
		*nodeID = w.Address
	}

	l := ledger.New()
	var reg *staker.Registry
	var chain *blockchain.Chain
	pending := mempool.New()
	slashLog := slashing.NewLog()
	params := governance.Default()

	if state != nil {
		l.Restore(state.LedgerBalances)
		reg = staker.Restore(l, state.Stakers)
		chain = blockchain.Restore(state.Blocks, state.FinalizedHeight, state.Difficulty)
		for _, tx := range state.Pending {
			pending.Add(tx)
		}
		slashLog.Restore(state.SlashLog)
		params = state.Governance
		log.Printf("restored snapshot: %d blocks, finalized height %d", chain.Len(), chain.FinalizedHeight())
	} else {
		reg = staker.New(l)
		chain = blockchain.New(*difficulty)
		if p, err := governance.New(*slashPercent, *finalityDepth); err == nil {
			params = p
		}
		log.Printf("no snapshot found at %s, starting a fresh chain", statePath)
	}

	if _, ok := reg.Get(w.Address); !ok {
		l.Credit(w.Address, 1)
		if err := reg.Deposit(w.Address, 1, &w.PublicKeyHex, &w.PrivateKeyHex); err != nil {
			log.Fatalf("failed to self-register as a staker: %v", err)
		}
		log.Printf("registered %s as a staker with a bootstrap stake of 1", w.Address)
	}

	engine := gossip.New(chain, *nodeID, *peerToken)
	if state != nil {
		for _, p := range state.Peers {
			engine.RegisterPeer(p)
		}
	}
	for _, p := range strings.Split(*peerList, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			engine.RegisterPeer(p)
		}
	}

	server := rpcserver.NewServer(engine, func() governance.Params { return params }, rpcserver.Config{Port: *p2pPort})
	server.Start()
	log.Printf("P2P surface listening on :%d", *p2pPort)

	coordinator := mining.NewCoordinator(chain, reg, pending, engine)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(*mineInterval)
	defer ticker.Stop()

	log.Println("chaincored running, mining as", w.Address)

runLoop:
	for {
		select {
		case <-ticker.C:
			block, err := coordinator.MineNext(params.FinalityDepth)
			switch {
			case err == nil:
				log.Printf("mined block %d by %s, hash %s", block.Index, *block.Validator, block.Hash)
			case errors.Is(err, coreerrors.ErrNothingToMine):
				// nothing pending; quietly wait for the next tick
			case errors.Is(err, coreerrors.ErrNoValidators):
				log.Printf("no stakers registered yet, skipping mining attempt")
			default:
				log.Printf("mining attempt failed: %v", err)
			}

			runFullChainScan(chain, reg, slashLog, params.SlashPercent, log)
		case <-stop:
			break runLoop
		}
	}

	server.Stop()
	log.Println("saving snapshot before exit")
	if err := snapshot.Save(statePath, buildState(chain, l, reg, pending, engine, params, slashLog)); err != nil {
		log.Printf("failed to save snapshot: %v", err)
	}
	if err := snapshot.IndexBlocks(db, chain.Blocks()); err != nil {
		log.Printf("failed to update durable block index: %v", err)
	}
	log.Println("goodbye")
}

func loadOrCreateWallet(dataDir string, log *logging.Logger) (*wallet.Wallet, error) {
	path := filepath.Join(dataDir, "wallet.json")
	if _, err := os.Stat(path); err == nil {
		w, err := wallet.Load(path)
		if err != nil {
			return nil, err
		}
		log.Printf("loaded staker identity %s", w.Address)
		return w, nil
	}

	w, err := wallet.CreateNew(dataDir)
	if err != nil {
		return nil, err
	}
	log.Printf("created new staker identity %s", w.Address)
	return w, nil
}

func buildState(chain *blockchain.Chain, l *ledger.Ledger, reg *staker.Registry, pending *mempool.Pending, engine *gossip.Engine, params governance.Params, slashLog *slashing.Log) *snapshot.State {
	return &snapshot.State{
		Blocks:          chain.Blocks(),
		FinalizedHeight: chain.FinalizedHeight(),
		Difficulty:      chain.Difficulty(),
		LedgerBalances:  l.Snapshot(),
		Stakers:         reg.Export(),
		Pending:         pendingSnapshot(pending),
		Peers:           engine.Peers(),
		Governance:      params,
		SlashLog:        slashLog.All(),
	}
}

// runFullChainScan replays the whole chain every tick looking for a
// consensus fault a peer or a restart might have slipped past append-time
// validation, slashing and logging whatever ValidateAndSlash finds. It
// complements evidence-driven slashing, which only re-checks one block at
// a caller's request.
func runFullChainScan(chain *blockchain.Chain, reg *staker.Registry, slashLog *slashing.Log, slashPercent uint64, log *logging.Logger) {
	ok, events, reason := chain.ValidateAndSlash(reg, slashPercent)
	if ok {
		return
	}
	log.Printf("full-chain scan found a fault: %s", reason)
	for _, ev := range events {
		slashLog.Append(slashing.Record{
			BlockIndex: ev.BlockIndex,
			Validator:  ev.Address,
			Reason:     reason,
			Reporter:   "self",
			Amount:     ev.Amount,
			Timestamp:  time.Now().Unix(),
		})
		log.Printf("slashed %s by %d during full-chain scan", ev.Address, ev.Amount)
	}
}

func pendingSnapshot(p *mempool.Pending) []string {
	drained := p.DrainAll()
	for _, tx := range drained {
		p.Add(tx)
	}
	return drained
}
