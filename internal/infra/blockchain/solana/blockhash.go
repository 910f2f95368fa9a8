package solana

import (
	"context"
	"errors"

	"github.com/gabapcia/txconfirm/internal/confirmation"

	"github.com/gagliardetto/solana-go/rpc"
)

// ErrEmptyBlockhash is returned when the node answers getLatestBlockhash with no value.
var ErrEmptyBlockhash = errors.New("node returned no blockhash")

// GetLatestBlockhash implements txwatch.BlockhashSource.
func (c *client) GetLatestBlockhash(ctx context.Context, commitment confirmation.Commitment) (confirmation.ExpiryWindow, error) {
	level, err := commitmentParam(commitment)
	if err != nil {
		return confirmation.ExpiryWindow{}, err
	}

	result, err := call[rpc.GetLatestBlockhashResult](ctx, c, "getLatestBlockhash", commitmentConfig{Commitment: level})
	if err != nil {
		return confirmation.ExpiryWindow{}, err
	}

	if result.Value == nil || result.Value.Blockhash.IsZero() {
		return confirmation.ExpiryWindow{}, ErrEmptyBlockhash
	}

	return confirmation.ExpiryWindow{
		Blockhash:            confirmation.Blockhash(result.Value.Blockhash.String()),
		LastValidBlockHeight: result.Value.LastValidBlockHeight,
	}, nil
}
