package confirmation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrategy_validate(t *testing.T) {
	t.Run("signature status with no budget is valid", func(t *testing.T) {
		assert.NoError(t, SignatureStatusStrategy(0).validate())
	})

	t.Run("negative attempt budget is rejected", func(t *testing.T) {
		assert.ErrorIs(t, SignatureStatusStrategy(-1).validate(), ErrInvalidStrategy)
	})

	t.Run("zero value strategy is rejected", func(t *testing.T) {
		assert.ErrorIs(t, Strategy{}.validate(), ErrInvalidStrategy)
	})

	t.Run("blockhash expiry requires a complete window", func(t *testing.T) {
		assert.ErrorIs(t, BlockhashExpiry(ExpiryWindow{LastValidBlockHeight: 100}).validate(), ErrInvalidExpiryWindow)
		assert.ErrorIs(t, BlockhashExpiry(ExpiryWindow{Blockhash: "hash"}).validate(), ErrInvalidExpiryWindow)
		assert.NoError(t, BlockhashExpiry(ExpiryWindow{Blockhash: "hash", LastValidBlockHeight: 100}).validate())
	})
}

func TestStrategy_Accessors(t *testing.T) {
	window := ExpiryWindow{Blockhash: "hash", LastValidBlockHeight: 100}
	s := BlockhashExpiry(window).WithMaxAttempts(7)

	assert.Equal(t, StrategyBlockhashExpiry, s.Kind())
	assert.Equal(t, 7, s.MaxAttempts())

	got, ok := s.Window()
	assert.True(t, ok)
	assert.Equal(t, window, got)

	_, ok = SignatureStatusStrategy(3).Window()
	assert.False(t, ok)

	assert.Equal(t, "signature_status", StrategySignatureStatus.String())
	assert.Equal(t, "blockhash_expiry", StrategyBlockhashExpiry.String())
}

func TestStrategy_attemptsExhausted(t *testing.T) {
	assert.False(t, SignatureStatusStrategy(0).attemptsExhausted(1000), "zero means unbounded")
	assert.False(t, SignatureStatusStrategy(3).attemptsExhausted(2))
	assert.True(t, SignatureStatusStrategy(3).attemptsExhausted(3))
}

func TestEvaluateStatus(t *testing.T) {
	t.Run("absent status leaves the state pending", func(t *testing.T) {
		s := newTrackingState("sig")
		evaluateStatus(s, PollResult{}, CommitmentConfirmed)
		assert.Equal(t, StatePending, s.outcome.State)
	})

	t.Run("below target is observed", func(t *testing.T) {
		s := newTrackingState("sig")
		evaluateStatus(s, PollResult{Status: &SignatureStatus{Slot: 3, Commitment: CommitmentProcessed}}, CommitmentConfirmed)

		assert.Equal(t, StatePending, s.outcome.State)
		assert.Equal(t, CommitmentProcessed, s.outcome.Commitment)
	})

	t.Run("at target confirms", func(t *testing.T) {
		s := newTrackingState("sig")
		evaluateStatus(s, PollResult{Status: &SignatureStatus{Slot: 3, Commitment: CommitmentFinalized}}, CommitmentConfirmed)

		assert.Equal(t, StateConfirmed, s.outcome.State)
		assert.Equal(t, CommitmentFinalized, s.outcome.Commitment)
	})

	t.Run("execution error wins over the commitment", func(t *testing.T) {
		s := newTrackingState("sig")
		evaluateStatus(s, PollResult{Status: &SignatureStatus{
			Commitment: CommitmentProcessed,
			Err:        json.RawMessage(`{"InstructionError":[0,"InvalidAccountData"]}`),
		}}, CommitmentFinalized)

		assert.Equal(t, StateFailed, s.outcome.State)
		assert.Equal(t, FailureTransactionError, s.outcome.Reason)
		assert.JSONEq(t, `{"InstructionError":[0,"InvalidAccountData"]}`, string(s.outcome.TransactionError))
	})
}

func TestEvaluateWithExpiry(t *testing.T) {
	strategy := BlockhashExpiry(ExpiryWindow{Blockhash: "hash", LastValidBlockHeight: 100})

	t.Run("height within window keeps pending", func(t *testing.T) {
		s := newTrackingState("sig")
		result := PollResult{BlockHeight: u64(100)}
		s.recordSuccess(result)
		strategy.evaluateWithExpiry(s, result, CommitmentConfirmed)

		assert.Equal(t, StatePending, s.outcome.State)
	})

	t.Run("height past window expires", func(t *testing.T) {
		s := newTrackingState("sig")
		result := PollResult{BlockHeight: u64(101)}
		s.recordSuccess(result)
		strategy.evaluateWithExpiry(s, result, CommitmentConfirmed)

		assert.Equal(t, StateExpired, s.outcome.State)
		assert.ErrorIs(t, s.outcome.Err(), ErrExpired)
	})

	t.Run("a lagging height cannot undo progress", func(t *testing.T) {
		s := newTrackingState("sig")
		s.recordSuccess(PollResult{BlockHeight: u64(101)})

		result := PollResult{BlockHeight: u64(95)}
		s.recordSuccess(result)
		strategy.evaluateWithExpiry(s, result, CommitmentConfirmed)

		assert.Equal(t, StateExpired, s.outcome.State)
	})

	t.Run("a status takes precedence over the window", func(t *testing.T) {
		s := newTrackingState("sig")
		result := PollResult{Status: &SignatureStatus{Commitment: CommitmentConfirmed}}
		strategy.evaluateWithExpiry(s, result, CommitmentConfirmed)

		assert.Equal(t, StateConfirmed, s.outcome.State)
	})
}
