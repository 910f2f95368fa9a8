package txwatch

import (
	"context"
	"errors"

	"github.com/gabapcia/txconfirm/internal/confirmation"
)

// ErrChainNotConfigured is returned by operations that need an RPC
// capability the service was built without.
var ErrChainNotConfigured = errors.New("blockchain capability not configured")

// BlockhashSource fetches the blockhash a new transaction should be built
// against, together with its validity window.
type BlockhashSource interface {
	GetLatestBlockhash(ctx context.Context, commitment confirmation.Commitment) (confirmation.ExpiryWindow, error)
}

// SendOptions tune transaction submission.
type SendOptions struct {
	SkipPreflight       bool
	PreflightCommitment confirmation.Commitment
	MaxRetries          *uint
}

// TransactionSubmitter relays a signed, encoded transaction to the network.
type TransactionSubmitter interface {
	SendTransaction(ctx context.Context, encodedTx string, opts SendOptions) (confirmation.Signature, error)
}

type nopChain struct{}

var (
	_ BlockhashSource      = (*nopChain)(nil)
	_ TransactionSubmitter = (*nopChain)(nil)
)

func (nopChain) GetLatestBlockhash(context.Context, confirmation.Commitment) (confirmation.ExpiryWindow, error) {
	return confirmation.ExpiryWindow{}, ErrChainNotConfigured
}

func (nopChain) SendTransaction(context.Context, string, SendOptions) (confirmation.Signature, error) {
	return "", ErrChainNotConfigured
}
