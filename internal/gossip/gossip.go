// Package gossip implements the peer-to-peer block fan-out and ingestion
// engine: best-effort broadcast of freshly mined blocks to registered
// peers, and the inbound path that validates and appends batches of
// blocks received from them.
package gossip

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"chaincore/internal/blockchain"
	"chaincore/internal/coreerrors"
	"chaincore/internal/core"
)

// ProtocolVersion identifies the envelope wire format this engine speaks.
const ProtocolVersion = "hikmalayer-p2p/1"

// DefaultClockSkew bounds how far an envelope's timestamp may drift from
// the receiver's clock before it is rejected.
const DefaultClockSkew = 60 * time.Second

// EnvelopeType names the payload carried by an Envelope.
type EnvelopeType string

const (
	TypeBlock        EnvelopeType = "Block"
	TypeBlockBatch   EnvelopeType = "BlockBatch"
	TypePing         EnvelopeType = "Ping"
	TypePeerAnnounce EnvelopeType = "PeerAnnounce"
)

// Envelope wraps a gossip payload with routing metadata. Using it is
// optional for peers of this engine — bare block batches posted to
// /p2p/blocks are also accepted — but the P2P server checks it with
// ValidateEnvelope when a caller chooses to speak it.
type Envelope struct {
	ProtocolVersion string          `json:"protocol_version"`
	NodeID          string          `json:"node_id"`
	MessageID       string          `json:"message_id"`
	Timestamp       time.Time       `json:"timestamp"`
	Payload         EnvelopePayload `json:"payload"`
}

// EnvelopePayload carries a typed, opaque body.
type EnvelopePayload struct {
	Type EnvelopeType    `json:"type"`
	Data json.RawMessage `json:"data"`
}

// NewEnvelope builds an Envelope around data, stamping a fresh message id
// and the current time.
func NewEnvelope(nodeID string, payloadType EnvelopeType, data interface{}) (*Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		ProtocolVersion: ProtocolVersion,
		NodeID:          nodeID,
		MessageID:       uuid.NewString(),
		Timestamp:       time.Now().UTC(),
		Payload:         EnvelopePayload{Type: payloadType, Data: raw},
	}, nil
}

// ValidateEnvelope checks protocol version, required identifiers, and
// clock skew against maxSkew. A zero maxSkew disables the skew check.
func ValidateEnvelope(e *Envelope, maxSkew time.Duration) error {
	if e.ProtocolVersion != ProtocolVersion {
		return coreerrors.ErrUnknownProtocolVersion
	}
	if e.NodeID == "" {
		return coreerrors.ErrEmptyNodeID
	}
	if e.MessageID == "" {
		return coreerrors.ErrEmptyMessageID
	}
	if maxSkew > 0 {
		skew := time.Since(e.Timestamp)
		if skew < 0 {
			skew = -skew
		}
		if skew > maxSkew {
			return coreerrors.ErrClockSkew
		}
	}
	return nil
}

// maxRetries bounds how many times postBlocks retries a single peer
// before Broadcast counts it as failed.
const maxRetries = 2

// retryBackoff is the base delay between retry attempts, scaled by
// attempt number (200ms, 400ms, ...).
const retryBackoff = 200 * time.Millisecond

// Engine is the peer registry and fan-out/ingestion engine. It is safe
// for concurrent use.
type Engine struct {
	mu     sync.RWMutex
	peers  map[string]struct{}
	nodeID string
	token  string
	client *http.Client

	sent   uint64
	failed uint64

	chain *blockchain.Chain
}

// New wires an Engine to the chain it ingests blocks into. nodeID is
// recorded on the engine only: Broadcast posts bare block arrays, not
// envelopes, so it is not sent to peers. token, when non-empty, is
// attached as the x-p2p-token header on outbound requests.
func New(chain *blockchain.Chain, nodeID, token string) *Engine {
	return &Engine{
		peers:  make(map[string]struct{}),
		nodeID: nodeID,
		token:  token,
		client: &http.Client{Timeout: 5 * time.Second},
		chain:  chain,
	}
}

// RegisterPeer adds address to the peer set. It reports whether the peer
// was newly added (false if it was already known).
func (e *Engine) RegisterPeer(address string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.peers[address]; ok {
		return false
	}
	e.peers[address] = struct{}{}
	return true
}

// Peers returns the registered peer addresses in sorted order.
func (e *Engine) Peers() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.peers))
	for p := range e.peers {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Stats reports cumulative broadcast outcomes.
func (e *Engine) Stats() (sent, failed uint64) {
	return atomic.LoadUint64(&e.sent), atomic.LoadUint64(&e.failed)
}

// Broadcast fans a newly appended block out to every registered peer
// concurrently. Delivery is best-effort: a peer that is unreachable or
// rejects the block is counted as failed and otherwise ignored. Broadcast
// does not block past the fan-out itself — it waits for all peer POSTs
// to finish or fail before returning, but callers needing to never block
// the miner should invoke it from a goroutine (mining.Coordinator does).
func (e *Engine) Broadcast(block core.Block) {
	peers := e.Peers()
	if len(peers) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, peer := range peers {
		wg.Add(1)
		go func(peer string) {
			defer wg.Done()
			if err := e.postBlocksWithRetry(peer, []core.Block{block}); err != nil {
				atomic.AddUint64(&e.failed, 1)
				return
			}
			atomic.AddUint64(&e.sent, 1)
		}(peer)
	}
	wg.Wait()
}

// postBlocksWithRetry retries a failed delivery up to maxRetries times,
// sleeping retryBackoff*(attempt+1) between attempts.
func (e *Engine) postBlocksWithRetry(peer string, blocks []core.Block) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err = e.postBlocks(peer, blocks); err == nil {
			return nil
		}
		if attempt < maxRetries {
			time.Sleep(retryBackoff * time.Duration(attempt+1))
		}
	}
	return err
}

func (e *Engine) postBlocks(peer string, blocks []core.Block) error {
	body, err := json.Marshal(blocks)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, peer+"/p2p/blocks", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("x-p2p-token", e.token)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("peer %s rejected blocks with status %d", peer, resp.StatusCode)
	}
	return nil
}

// IngestBlocks validates and appends blocks in order, stopping at the
// first one that fails validation. It returns how many were accepted.
// Finality is reapplied once after any acceptance, not per block, so a
// partial batch still advances finalized_height as far as it safely can.
func (e *Engine) IngestBlocks(blocks []core.Block, finalityDepth uint64) (int, error) {
	accepted := 0
	var ingestErr error

	for _, b := range blocks {
		if err := e.chain.ValidateCandidate(b); err != nil {
			ingestErr = err
			break
		}
		e.chain.Append(b)
		accepted++
	}

	if accepted > 0 {
		e.chain.ApplyFinality(finalityDepth)
	}
	return accepted, ingestErr
}

// CheckToken reports whether presented matches the configured shared
// secret. When no token is configured, every request is accepted.
func (e *Engine) CheckToken(presented string) error {
	if e.token == "" {
		return nil
	}
	if presented != e.token {
		return coreerrors.ErrAuthRejected
	}
	return nil
}
