// Package coreerrors centralizes the named error kinds the consensus core
// can surface, so callers can branch on them with errors.Is instead of
// string-matching messages.
package coreerrors

import "errors"

// Structural rejections: the candidate block is malformed. Never slashes.
var (
	ErrIndexMismatch      = errors.New("block index does not extend the chain")
	ErrPrevHashMismatch   = errors.New("previous hash does not match chain tip")
	ErrMissingFields      = errors.New("non-genesis block missing required fields")
	ErrSetHashMismatch    = errors.New("staker set hash does not match snapshot")
)

// Consensus rejections: the candidate block is well-formed but its claims
// don't check out. ValidateAndSlash slashes the named validator on these;
// EvaluateEvidence reports them as evidence and leaves slashing to its caller.
var (
	ErrWrongValidator = errors.New("validator does not match leader selection")
	ErrBadSignature   = errors.New("signature verification failed")
	ErrBadPoW         = errors.New("proof of work verification failed")
)

// Operational errors: no state mutation beyond what preceded them.
var (
	ErrNoValidators      = errors.New("no stakers to select a leader from")
	ErrMissingKeys       = errors.New("staker requires both public and private key")
	ErrInsufficientStake = errors.New("insufficient stake")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrZeroAmount        = errors.New("amount must be non-zero")
	ErrUnknownStaker     = errors.New("staker not found")
)

// ErrNotSlashable means the target block is well-formed; evidence submission
// has no effect.
var ErrNotSlashable = errors.New("block is not slashable")

// ErrCannotSlashGenesis rejects evidence submitted against the genesis block.
var ErrCannotSlashGenesis = errors.New("Cannot slash genesis block")

// ErrBlockNotFound means the requested block index is out of range.
var ErrBlockNotFound = errors.New("block index out of range")

// ErrNothingToMine is an informational outcome, not a failure: the chain
// has advanced past genesis and there are no pending transactions.
var ErrNothingToMine = errors.New("nothing to mine")

// ErrAuthRejected means a P2P request's token did not match the configured
// shared secret.
var ErrAuthRejected = errors.New("p2p token rejected")

// Gossip envelope rejections.
var (
	ErrUnknownProtocolVersion = errors.New("unknown gossip protocol version")
	ErrEmptyNodeID            = errors.New("gossip envelope missing node id")
	ErrEmptyMessageID         = errors.New("gossip envelope missing message id")
	ErrClockSkew              = errors.New("gossip envelope timestamp outside allowed skew")
)

// ErrMissingAddress means a peer registration request omitted its
// address field.
var ErrMissingAddress = errors.New("peer registration missing address")

// Governance update rejections: the requested parameters fall outside
// their allowed ranges. The existing parameters are left untouched.
var (
	ErrInvalidSlashPercent  = errors.New("slash percent must be between 1 and 100")
	ErrInvalidFinalityDepth = errors.New("finality depth must be between 1 and 10000")
)
