package txwatch

import (
	"context"
	"errors"
	"time"

	"github.com/gabapcia/txconfirm/internal/confirmation"
)

// ErrAlreadyTracking indicates another process holds the claim on a signature.
var ErrAlreadyTracking = errors.New("signature is already being tracked")

// ClaimGuard coordinates tracking across processes so that each signature is
// polled by a single tracker at a time.
type ClaimGuard interface {
	// ClaimSignature acquires exclusive tracking rights on sig for ttl.
	// It returns ErrAlreadyTracking when the claim is held elsewhere. The ttl
	// bounds how long a crashed holder can block other processes.
	ClaimSignature(ctx context.Context, sig confirmation.Signature, ttl time.Duration) error

	// ReleaseSignature drops a claim acquired by ClaimSignature.
	ReleaseSignature(ctx context.Context, sig confirmation.Signature) error
}

// nopClaimGuard grants every claim. Suitable for a single process.
type nopClaimGuard struct{}

var _ ClaimGuard = (*nopClaimGuard)(nil)

func (nopClaimGuard) ClaimSignature(context.Context, confirmation.Signature, time.Duration) error {
	return nil
}

func (nopClaimGuard) ReleaseSignature(context.Context, confirmation.Signature) error {
	return nil
}
