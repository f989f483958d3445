// Package governance holds the two tunable parameters the chain store and
// slashing arbiter read: how much stake a proven fault costs a validator,
// and how many blocks must elapse before a block is considered final.
package governance

import "chaincore/internal/coreerrors"

// Params are the governance parameters in effect. The zero value is not
// valid configuration — use Default or New to construct one.
type Params struct {
	SlashPercent   uint64
	FinalityDepth  uint64
}

const (
	minSlashPercent  = 1
	maxSlashPercent  = 100
	minFinalityDepth = 1
	maxFinalityDepth = 10000
)

// Default returns the reference configuration: a 10% slash on proven
// misbehavior and a 6-block finality depth.
func Default() Params {
	return Params{SlashPercent: 10, FinalityDepth: 6}
}

// New validates slashPercent and finalityDepth against their bounds before
// constructing Params.
func New(slashPercent, finalityDepth uint64) (Params, error) {
	p := Params{SlashPercent: slashPercent, FinalityDepth: finalityDepth}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Validate reports whether p's fields fall within their governance bounds.
func (p Params) Validate() error {
	if p.SlashPercent < minSlashPercent || p.SlashPercent > maxSlashPercent {
		return coreerrors.ErrInvalidSlashPercent
	}
	if p.FinalityDepth < minFinalityDepth || p.FinalityDepth > maxFinalityDepth {
		return coreerrors.ErrInvalidFinalityDepth
	}
	return nil
}
