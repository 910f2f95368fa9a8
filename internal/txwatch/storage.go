package txwatch

import (
	"context"
	"errors"

	"github.com/gabapcia/txconfirm/internal/confirmation"
)

// ErrOutcomeNotFound is returned when no outcome is stored for a signature.
var ErrOutcomeNotFound = errors.New("outcome not found")

// OutcomeStorage persists resolved outcomes so later lookups, and later
// tracking requests for the same signature, can skip polling.
type OutcomeStorage interface {
	// SaveOutcome stores outcome keyed by its signature, replacing any
	// previous value.
	SaveOutcome(ctx context.Context, outcome confirmation.Outcome) error

	// LoadOutcome returns the stored outcome for sig or ErrOutcomeNotFound.
	LoadOutcome(ctx context.Context, sig confirmation.Signature) (confirmation.Outcome, error)
}

// nopOutcomeStorage stores nothing and never finds anything.
type nopOutcomeStorage struct{}

var _ OutcomeStorage = (*nopOutcomeStorage)(nil)

func (nopOutcomeStorage) SaveOutcome(context.Context, confirmation.Outcome) error {
	return nil
}

func (nopOutcomeStorage) LoadOutcome(context.Context, confirmation.Signature) (confirmation.Outcome, error) {
	return confirmation.Outcome{}, ErrOutcomeNotFound
}
