package giveaway

import "errors"

// Domain-rule rejections surfaced to the command layer. All are terminal for
// the operation that raised them; none call for a retry.
var (
	ErrValidation     = errors.New("invalid giveaway parameters")
	ErrNotFound       = errors.New("giveaway not found")
	ErrNotRunning     = errors.New("giveaway is not running")
	ErrNotEnded       = errors.New("giveaway has not ended")
	ErrNotEligible    = errors.New("user has more wins than vouches")
	ErrAlreadyEntered = errors.New("user already entered")
	ErrNotEntered     = errors.New("user is not entered")
	ErrNotAWinner     = errors.New("user is not a winner of this giveaway")
	ErrAlreadyVouched = errors.New("vouch already recorded")
	ErrVouchBlocked   = errors.New("vouch blocked by a moderator")
	ErrNoWinners      = errors.New("no winners recorded")
	ErrNoEntrants     = errors.New("no entrants to draw from")
	ErrNoEligiblePool = errors.New("no eligible entrants remain")
)
