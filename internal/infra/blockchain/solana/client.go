// Package solana implements the confirmation and txwatch chain capabilities
// on top of a Solana JSON-RPC node.
package solana

import (
	"context"
	"fmt"

	"github.com/gabapcia/txconfirm/internal/confirmation"
	"github.com/gabapcia/txconfirm/internal/pkg/transport/jsonrpc"
	"github.com/gabapcia/txconfirm/internal/txwatch"

	"github.com/gagliardetto/solana-go/rpc"
)

// client talks to a Solana node through conn. It holds no mutable state and
// is safe for concurrent use.
type client struct {
	conn jsonrpc.Client
}

var (
	_ confirmation.Blockchain      = (*client)(nil)
	_ txwatch.BlockhashSource      = (*client)(nil)
	_ txwatch.TransactionSubmitter = (*client)(nil)
)

// NewClient returns a Solana client using conn for every RPC call.
func NewClient(conn jsonrpc.Client) *client {
	return &client{
		conn: conn,
	}
}

// call refuses deprecated methods before reaching the node and decodes the
// result into T.
func call[T any](ctx context.Context, c *client, method string, params ...any) (T, error) {
	if err := CheckMethod(method); err != nil {
		var zero T
		return zero, err
	}

	return jsonrpc.Call[T](ctx, c.conn, method, params...)
}

// commitmentParam maps a commitment level onto its RPC name.
func commitmentParam(c confirmation.Commitment) (rpc.CommitmentType, error) {
	switch c {
	case confirmation.CommitmentProcessed:
		return rpc.CommitmentProcessed, nil
	case confirmation.CommitmentConfirmed:
		return rpc.CommitmentConfirmed, nil
	case confirmation.CommitmentFinalized:
		return rpc.CommitmentFinalized, nil
	default:
		return "", fmt.Errorf("%w: %d", confirmation.ErrInvalidCommitment, uint8(c))
	}
}

// commitmentConfig is the common {"commitment": ...} RPC option object.
type commitmentConfig struct {
	Commitment rpc.CommitmentType `json:"commitment"`
}

// GetBlockHeight implements confirmation.Blockchain.
func (c *client) GetBlockHeight(ctx context.Context, commitment confirmation.Commitment) (uint64, error) {
	level, err := commitmentParam(commitment)
	if err != nil {
		return 0, err
	}

	return call[uint64](ctx, c, "getBlockHeight", commitmentConfig{Commitment: level})
}
