// Package snapshot persists and restores the node's whole in-memory
// state as a single JSON document: the chain, ledger balances, staker
// registry (including private keys), pending transactions, known peers,
// governance parameters, and the slash evidence log. It is repurposed
// from the teacher's genesis-config load/save-to-file idiom.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"chaincore/internal/core"
	"chaincore/internal/governance"
	"chaincore/internal/slashing"
	"chaincore/internal/staker"
	"chaincore/internal/storage"
)

// blockKey formats the durable key/value index key for one block, kept
// separately from the single whole-state JSON file so a block can be
// looked up without decoding the entire document.
func blockKey(index int64) []byte {
	return []byte(fmt.Sprintf("block:%020d", index))
}

// State is the whole-node state document.
type State struct {
	Blocks          []core.Block       `json:"blocks"`
	FinalizedHeight int64              `json:"finalizedHeight"`
	Difficulty      int                `json:"difficulty"`
	LedgerBalances  map[string]uint64  `json:"ledgerBalances"`
	Stakers         []staker.Staker    `json:"stakers"`
	Pending         []string           `json:"pending"`
	Peers           []string           `json:"peers"`
	Governance      governance.Params  `json:"governance"`
	SlashLog        []slashing.Record  `json:"slashLog"`
}

// Load reads and decodes the state document at path. It returns
// (nil, nil) both when path does not exist and when its contents are
// not valid JSON, so a node with no usable prior snapshot always starts
// fresh rather than refusing to boot. Only an I/O error other than
// "not exist" is propagated.
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, nil
	}
	return &state, nil
}

// Save writes state to path as indented JSON, creating path's parent
// directory if it does not already exist.
func Save(path string, state *State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// IndexBlocks writes each block into db under a zero-padded "block:<index>"
// key, giving the durable key/value store a block index independent of
// the whole-state JSON file — a future reader can fetch one block by
// height without decoding the entire snapshot document.
func IndexBlocks(db storage.Database, blocks []core.Block) error {
	batch := db.NewBatch()
	for i := range blocks {
		data, err := json.Marshal(blocks[i])
		if err != nil {
			return err
		}
		if err := batch.Put(blockKey(blocks[i].Index), data); err != nil {
			return err
		}
	}
	return batch.Write()
}

// LoadBlockIndex reads back up to count consecutively indexed blocks
// starting at height 0, stopping at the first missing key. It is not a
// restore path: the node rebuilds its chain from the JSON snapshot only.
func LoadBlockIndex(db storage.Database, count int64) ([]core.Block, error) {
	blocks := make([]core.Block, 0, count)
	for i := int64(0); i < count; i++ {
		has, err := db.Has(blockKey(i))
		if err != nil {
			return nil, err
		}
		if !has {
			break
		}
		data, err := db.Get(blockKey(i))
		if err != nil {
			return nil, err
		}
		var b core.Block
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}
