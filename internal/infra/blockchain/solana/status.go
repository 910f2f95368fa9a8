package solana

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gabapcia/txconfirm/internal/confirmation"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// maxSignaturesPerRequest is the node limit for getSignatureStatuses.
const maxSignaturesPerRequest = 256

type signatureStatusesConfig struct {
	SearchTransactionHistory bool `json:"searchTransactionHistory"`
}

// GetSignatureStatuses implements confirmation.Blockchain. Signatures are
// validated locally and sent in batches of at most 256. The node's
// transaction history is searched so statuses older than the recent status
// cache are still found.
func (c *client) GetSignatureStatuses(ctx context.Context, signatures ...confirmation.Signature) (map[confirmation.Signature]confirmation.SignatureStatus, error) {
	encoded := make([]string, len(signatures))
	for i, sig := range signatures {
		parsed, err := solana.SignatureFromBase58(string(sig))
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", confirmation.ErrInvalidSignature, sig, err)
		}
		encoded[i] = parsed.String()
	}

	statuses := make(map[confirmation.Signature]confirmation.SignatureStatus, len(signatures))
	for start := 0; start < len(encoded); start += maxSignaturesPerRequest {
		end := min(start+maxSignaturesPerRequest, len(encoded))

		result, err := call[rpc.GetSignatureStatusesResult](ctx, c, "getSignatureStatuses",
			encoded[start:end],
			signatureStatusesConfig{SearchTransactionHistory: true},
		)
		if err != nil {
			return nil, err
		}

		for i, value := range result.Value {
			if value == nil || start+i >= end {
				continue
			}

			status, err := toSignatureStatus(value)
			if err != nil {
				return nil, err
			}
			statuses[signatures[start+i]] = status
		}
	}

	return statuses, nil
}

func toSignatureStatus(v *rpc.SignatureStatusesResult) (confirmation.SignatureStatus, error) {
	status := confirmation.SignatureStatus{
		Slot:          v.Slot,
		Commitment:    toCommitment(v.ConfirmationStatus, v.Confirmations),
		Confirmations: v.Confirmations,
	}

	if v.Err != nil {
		raw, err := json.Marshal(v.Err)
		if err != nil {
			return confirmation.SignatureStatus{}, fmt.Errorf("encode transaction error: %w", err)
		}
		status.Err = raw
	}

	return status, nil
}

// toCommitment maps the node's confirmationStatus. Nodes that omit it report
// rooted transactions with a null confirmation count.
func toCommitment(status rpc.ConfirmationStatusType, confirmations *uint64) confirmation.Commitment {
	switch status {
	case rpc.ConfirmationStatusProcessed:
		return confirmation.CommitmentProcessed
	case rpc.ConfirmationStatusConfirmed:
		return confirmation.CommitmentConfirmed
	case rpc.ConfirmationStatusFinalized:
		return confirmation.CommitmentFinalized
	}

	if confirmations == nil {
		return confirmation.CommitmentFinalized
	}
	return confirmation.CommitmentProcessed
}
