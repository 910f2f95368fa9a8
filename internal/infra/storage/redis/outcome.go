package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gabapcia/txconfirm/internal/confirmation"
	"github.com/gabapcia/txconfirm/internal/txwatch"

	"github.com/redis/go-redis/v9"
)

func outcomeKey(sig confirmation.Signature) string {
	return fmt.Sprintf("%s:outcome:%s", keyPrefix, sig)
}

// SaveOutcome stores outcome as JSON, overwriting any previous value and
// resetting its TTL.
func (c *client) SaveOutcome(ctx context.Context, outcome confirmation.Outcome) error {
	data, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("encode outcome: %w", err)
	}

	return c.conn.Set(ctx, outcomeKey(outcome.Signature), data, c.outcomeTTL).Err()
}

// LoadOutcome returns the stored outcome or txwatch.ErrOutcomeNotFound.
func (c *client) LoadOutcome(ctx context.Context, sig confirmation.Signature) (confirmation.Outcome, error) {
	data, err := c.conn.Get(ctx, outcomeKey(sig)).Bytes()
	if errors.Is(err, redis.Nil) {
		return confirmation.Outcome{}, txwatch.ErrOutcomeNotFound
	}
	if err != nil {
		return confirmation.Outcome{}, err
	}

	var outcome confirmation.Outcome
	if err := json.Unmarshal(data, &outcome); err != nil {
		return confirmation.Outcome{}, fmt.Errorf("decode outcome: %w", err)
	}
	return outcome, nil
}

var _ txwatch.OutcomeStorage = new(client)
