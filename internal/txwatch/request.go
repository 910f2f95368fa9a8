package txwatch

import (
	"github.com/gabapcia/txconfirm/internal/confirmation"
	"github.com/gabapcia/txconfirm/internal/pkg/validator"
)

// Request describes one signature to track.
type Request struct {
	Signature confirmation.Signature `validate:"required,base58sig"`

	// Commitment is the target level. Zero selects the service default.
	Commitment confirmation.Commitment

	// Window, when set, bounds tracking by blockhash expiry.
	Window *confirmation.ExpiryWindow `validate:"omitempty"`

	// MaxAttempts bounds the polls without a status. Zero selects the
	// service default, which may itself be unbounded.
	MaxAttempts int `validate:"gte=0"`
}

// Result pairs a streamed Request with its outcome.
type Result struct {
	Request Request
	Outcome confirmation.Outcome
	Err     error
}

func (r Request) validate() error {
	if err := validator.Validate(r); err != nil {
		return err
	}

	if r.Commitment != 0 && !r.Commitment.Valid() {
		return confirmation.ErrInvalidCommitment
	}
	return nil
}

func (r Request) strategy(defaultMaxAttempts int) confirmation.Strategy {
	attempts := r.MaxAttempts
	if attempts == 0 {
		attempts = defaultMaxAttempts
	}

	if r.Window != nil {
		return confirmation.BlockhashExpiry(*r.Window).WithMaxAttempts(attempts)
	}
	return confirmation.SignatureStatusStrategy(attempts)
}
