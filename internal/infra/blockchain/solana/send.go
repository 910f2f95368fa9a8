package solana

import (
	"context"
	"fmt"

	"github.com/gabapcia/txconfirm/internal/confirmation"
	"github.com/gabapcia/txconfirm/internal/txwatch"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

type sendTransactionConfig struct {
	Encoding            solana.EncodingType `json:"encoding"`
	SkipPreflight       bool                `json:"skipPreflight"`
	PreflightCommitment rpc.CommitmentType  `json:"preflightCommitment,omitempty"`
	MaxRetries          *uint               `json:"maxRetries,omitempty"`
}

// SendTransaction implements txwatch.TransactionSubmitter. encodedTx must be
// a signed transaction in base64 wire format.
func (c *client) SendTransaction(ctx context.Context, encodedTx string, opts txwatch.SendOptions) (confirmation.Signature, error) {
	cfg := sendTransactionConfig{
		Encoding:      solana.EncodingBase64,
		SkipPreflight: opts.SkipPreflight,
		MaxRetries:    opts.MaxRetries,
	}
	if opts.PreflightCommitment != 0 {
		level, err := commitmentParam(opts.PreflightCommitment)
		if err != nil {
			return "", err
		}
		cfg.PreflightCommitment = level
	}

	encoded, err := call[string](ctx, c, "sendTransaction", encodedTx, cfg)
	if err != nil {
		return "", err
	}

	sig, err := solana.SignatureFromBase58(encoded)
	if err != nil {
		return "", fmt.Errorf("decode returned signature: %w", err)
	}

	return confirmation.Signature(sig.String()), nil
}
