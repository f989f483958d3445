// Package core defines Block, the immutable unit the rest of the
// consensus core operates on. A block's hash authenticates exactly the
// fields listed in Payload — the nonce is the proof-of-work search
// variable and the signature signs the resulting hash, so neither belongs
// inside the hashed payload itself.
package core

import (
	"bytes"
	"strconv"

	"chaincore/internal/staker"
)

// Block is an immutable record once appended to the chain. Genesis
// (Index == 0) leaves every optional field nil; every other block must
// have all of them set.
type Block struct {
	Index         int64         `json:"index"`
	Timestamp     int64         `json:"timestamp"`
	Transactions  []string      `json:"transactions"`
	PreviousHash  string        `json:"previousHash"`
	Difficulty    int           `json:"difficulty"`
	Nonce         uint64        `json:"nonce"`
	Hash          string        `json:"hash"`

	Validator          *string        `json:"validator,omitempty"`
	ValidatorPublicKey *string        `json:"validatorPublicKey,omitempty"`
	Signature          *string        `json:"signature,omitempty"`
	StakerSetHash      *string        `json:"stakerSetHash,omitempty"`
	StakerSnapshot     *[]staker.View `json:"stakerSnapshot,omitempty"`
}

// IsGenesis reports whether b is the chain's first block.
func (b *Block) IsGenesis() bool {
	return b.Index == 0
}

// HasOptionalFields reports whether all five optional fields are present,
// the required state for every non-genesis block.
func (b *Block) HasOptionalFields() bool {
	return b.Validator != nil &&
		b.ValidatorPublicKey != nil &&
		b.Signature != nil &&
		b.StakerSetHash != nil &&
		b.StakerSnapshot != nil
}

// Payload renders the deterministic byte string the block hash
// authenticates: index, transactions, timestamp, validator, validator
// public key, staker set hash, and previous hash, in that order. Each
// transaction is length-prefixed so no ambiguity can arise from
// transaction content containing the field separator.
func (b *Block) Payload() []byte {
	var buf bytes.Buffer

	buf.WriteString(strconv.FormatInt(b.Index, 10))
	buf.WriteByte('|')
	for _, tx := range b.Transactions {
		buf.WriteString(strconv.Itoa(len(tx)))
		buf.WriteByte(':')
		buf.WriteString(tx)
	}
	buf.WriteByte('|')
	buf.WriteString(strconv.FormatInt(b.Timestamp, 10))
	buf.WriteByte('|')
	writeOptional(&buf, b.Validator)
	buf.WriteByte('|')
	writeOptional(&buf, b.ValidatorPublicKey)
	buf.WriteByte('|')
	writeOptional(&buf, b.StakerSetHash)
	buf.WriteByte('|')
	buf.WriteString(b.PreviousHash)

	return buf.Bytes()
}

func writeOptional(buf *bytes.Buffer, s *string) {
	if s != nil {
		buf.WriteString(*s)
	}
}
