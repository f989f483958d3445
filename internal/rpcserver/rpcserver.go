// Package rpcserver exposes the peer-to-peer HTTP surface: block
// ingestion and peer registration. It is deliberately narrow — three
// routes, JSON in, JSON out — unlike a general JSON-RPC node API.
package rpcserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"chaincore/internal/core"
	"chaincore/internal/coreerrors"
	"chaincore/internal/governance"
	"chaincore/internal/gossip"
)

// statusResponse is the uniform body shape for every route this server
// exposes.
type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Config holds the listener configuration.
type Config struct {
	Port int
}

// Server serves the block-gossip HTTP surface on top of a gossip.Engine.
type Server struct {
	config     Config
	engine     *gossip.Engine
	params     func() governance.Params
	httpServer *http.Server
}

// NewServer wires a Server to the gossip engine it delegates to. params
// is called on every request to read the current finality depth, so
// governance updates take effect without restarting the server.
func NewServer(engine *gossip.Engine, params func() governance.Params, config Config) *Server {
	return &Server{config: config, engine: engine, params: params}
}

// Handler builds the authenticated mux this server dispatches requests
// through. Exported so it can be driven directly in tests, without
// binding a real listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/p2p/blocks", s.handleBlocks)
	mux.HandleFunc("/p2p/block", s.handleBlocks)
	mux.HandleFunc("/p2p/peers/register", s.handleRegisterPeer)
	return s.withAuth(mux)
}

// Start begins serving in a background goroutine and returns
// immediately.
func (s *Server) Start() {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go s.httpServer.ListenAndServe()
}

// Stop shuts the server down, waiting up to 5 seconds for in-flight
// requests to finish.
func (s *Server) Stop() {
	if s.httpServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.httpServer.Shutdown(ctx)
}

// withAuth enforces the shared-secret x-p2p-token header when the
// engine was configured with one.
func (s *Server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.engine.CheckToken(r.Header.Get("x-p2p-token")); err != nil {
			writeJSON(w, http.StatusUnauthorized, statusResponse{Status: "rejected", Message: err.Error()})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleBlocks accepts either a single block or a batch and ingests it
// against the local chain, validating and appending a prefix of the
// batch if part of it fails.
func (s *Server) handleBlocks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, statusResponse{Status: "error", Message: "method not allowed"})
		return
	}

	body, err := decodeBlocks(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: "error", Message: "malformed block payload"})
		return
	}

	accepted, err := s.engine.IngestBlocks(body, s.params().FinalityDepth)
	if err != nil {
		writeJSON(w, http.StatusOK, statusResponse{
			Status:  "partial",
			Message: fmt.Sprintf("Accepted %d blocks, rejected the rest: %s", accepted, err.Error()),
		})
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Status:  "ok",
		Message: fmt.Sprintf("Accepted %d blocks", accepted),
	})
}

// decodeBlocks accepts a JSON array of blocks, a single JSON block
// object, or an Envelope whose payload data is one of the above.
func decodeBlocks(r *http.Request) ([]core.Block, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, err
	}

	var envelope gossip.Envelope
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.ProtocolVersion != "" {
		if err := gossip.ValidateEnvelope(&envelope, gossip.DefaultClockSkew); err != nil {
			return nil, err
		}
		raw = envelope.Payload.Data
	}

	var batch []core.Block
	if err := json.Unmarshal(raw, &batch); err == nil {
		return batch, nil
	}

	var single core.Block
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, err
	}
	return []core.Block{single}, nil
}

type registerPeerRequest struct {
	Address string `json:"address"`
}

// handleRegisterPeer adds the caller-supplied peer address to the
// gossip engine's peer set.
func (s *Server) handleRegisterPeer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, statusResponse{Status: "error", Message: "method not allowed"})
		return
	}

	var req registerPeerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Address == "" {
		writeJSON(w, http.StatusBadRequest, statusResponse{Status: "error", Message: coreerrors.ErrMissingAddress.Error()})
		return
	}

	added := s.engine.RegisterPeer(req.Address)
	msg := "peer registered"
	if !added {
		msg = "peer already known"
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok", Message: msg})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
