package confirmation

import (
	"bytes"
	"context"
	"encoding/json"
	"time"
)

// Signature identifies one submitted transaction attempt. It is returned by the
// node at submission time and never changes.
type Signature string

// Blockhash is the recent blockhash a transaction was built against.
type Blockhash string

// ExpiryWindow pairs a Blockhash with the last block height at which a
// transaction embedding it may still be included. Both values are fixed when
// the blockhash is fetched.
type ExpiryWindow struct {
	Blockhash            Blockhash `json:"blockhash" validate:"required,base58hash"`
	LastValidBlockHeight uint64    `json:"lastValidBlockHeight" validate:"required"`
}

// ExpiredAt reports whether a transaction built against w can no longer be
// included once the chain has reached height.
func (w ExpiryWindow) ExpiredAt(height uint64) bool {
	return height > w.LastValidBlockHeight
}

// SignatureStatus is the network's report of a transaction's current
// commitment and execution result.
type SignatureStatus struct {
	Slot          uint64          `json:"slot"`
	Commitment    Commitment      `json:"commitment"`
	Confirmations *uint64         `json:"confirmations,omitempty"`
	Err           json.RawMessage `json:"err,omitempty"`
}

// Failed reports whether the node returned an execution error for the transaction.
func (s SignatureStatus) Failed() bool {
	trimmed := bytes.TrimSpace(s.Err)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// Blockchain is the read-only RPC capability a tracker polls. Implementations
// must be safe for concurrent use; a single instance is shared by every
// tracking call.
type Blockchain interface {
	// GetSignatureStatuses returns the known status of each signature. A
	// signature the node has not seen yet is absent from the returned map.
	GetSignatureStatuses(ctx context.Context, signatures ...Signature) (map[Signature]SignatureStatus, error)

	// GetBlockHeight returns the current block height as seen at the given
	// commitment level. Values may lag the cluster but never go backwards on
	// a healthy node.
	GetBlockHeight(ctx context.Context, commitment Commitment) (uint64, error)
}

// PollResult is the snapshot produced by a single poll tick.
type PollResult struct {
	Status      *SignatureStatus // nil when the node has no status yet
	BlockHeight *uint64          // set only by strategies that read the height
	Err         error            // transport failure, if any
	ObservedAt  time.Time
}
