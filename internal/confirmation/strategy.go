package confirmation

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidStrategy is returned when a Strategy was not built with one of
	// the package constructors or carries a negative attempt budget.
	ErrInvalidStrategy = errors.New("invalid confirmation strategy")

	// ErrInvalidExpiryWindow is returned when a blockhash strategy is missing
	// its blockhash or last valid block height.
	ErrInvalidExpiryWindow = errors.New("invalid expiry window")
)

// StrategyKind tags the two ways a wait for confirmation can be bounded.
type StrategyKind uint8

const (
	// StrategySignatureStatus polls signature statuses and gives up after a
	// client-chosen number of attempts.
	StrategySignatureStatus StrategyKind = iota + 1

	// StrategyBlockhashExpiry polls signature statuses and, while none is
	// known, the block height, until the blockhash window has passed.
	StrategyBlockhashExpiry
)

func (k StrategyKind) String() string {
	switch k {
	case StrategySignatureStatus:
		return "signature_status"
	case StrategyBlockhashExpiry:
		return "blockhash_expiry"
	default:
		return fmt.Sprintf("strategy(%d)", uint8(k))
	}
}

// Strategy selects how a tracker decides a transaction will never confirm.
// It is an immutable value; build it with SignatureStatusStrategy or BlockhashExpiry.
type Strategy struct {
	kind        StrategyKind
	window      ExpiryWindow
	maxAttempts int
}

// SignatureStatusStrategy returns a strategy bounded by maxAttempts polls without a
// status. Zero means unbounded: only cancellation or a status ends tracking.
func SignatureStatusStrategy(maxAttempts int) Strategy {
	return Strategy{kind: StrategySignatureStatus, maxAttempts: maxAttempts}
}

// BlockhashExpiry returns a strategy bounded by the blockhash window the
// transaction was built against.
func BlockhashExpiry(window ExpiryWindow) Strategy {
	return Strategy{kind: StrategyBlockhashExpiry, window: window}
}

// WithMaxAttempts returns a copy of s that additionally gives up after n
// polls without a status. Use it to compose both bounds.
func (s Strategy) WithMaxAttempts(n int) Strategy {
	s.maxAttempts = n
	return s
}

func (s Strategy) Kind() StrategyKind { return s.kind }

func (s Strategy) MaxAttempts() int { return s.maxAttempts }

// Window returns the expiry window and whether the strategy uses one.
func (s Strategy) Window() (ExpiryWindow, bool) {
	return s.window, s.kind == StrategyBlockhashExpiry
}

func (s Strategy) validate() error {
	if s.maxAttempts < 0 {
		return fmt.Errorf("%w: negative max attempts %d", ErrInvalidStrategy, s.maxAttempts)
	}

	switch s.kind {
	case StrategySignatureStatus:
		return nil
	case StrategyBlockhashExpiry:
		if s.window.Blockhash == "" || s.window.LastValidBlockHeight == 0 {
			return ErrInvalidExpiryWindow
		}
		return nil
	default:
		return ErrInvalidStrategy
	}
}

// attemptsExhausted reports whether the attempt budget is used up.
func (s Strategy) attemptsExhausted(attempts int) bool {
	return s.maxAttempts > 0 && attempts >= s.maxAttempts
}

type (
	// pollFunc performs one tick of RPC calls.
	pollFunc func(ctx context.Context, chain Blockchain, sig Signature, target Commitment) PollResult

	// evaluateFunc applies a successful poll to the tracking state.
	evaluateFunc func(state *trackingState, result PollResult, target Commitment)
)

// steps is the poll/evaluate pair a strategy resolves to.
type steps struct {
	poll     pollFunc
	evaluate evaluateFunc
}

func (s Strategy) steps() steps {
	if s.kind == StrategyBlockhashExpiry {
		return steps{
			poll:     pollStatusThenHeight,
			evaluate: s.evaluateWithExpiry,
		}
	}

	return steps{
		poll:     pollStatus,
		evaluate: evaluateStatus,
	}
}

func fetchStatus(ctx context.Context, chain Blockchain, sig Signature) (*SignatureStatus, error) {
	statuses, err := chain.GetSignatureStatuses(ctx, sig)
	if err != nil {
		return nil, err
	}

	status, ok := statuses[sig]
	if !ok {
		return nil, nil
	}

	return &status, nil
}

func pollStatus(ctx context.Context, chain Blockchain, sig Signature, _ Commitment) PollResult {
	status, err := fetchStatus(ctx, chain, sig)
	return PollResult{
		Status:     status,
		Err:        err,
		ObservedAt: time.Now().UTC(),
	}
}

// pollStatusThenHeight reads the block height only when no status is known;
// once a status exists the expiry window no longer matters.
func pollStatusThenHeight(ctx context.Context, chain Blockchain, sig Signature, target Commitment) PollResult {
	result := pollStatus(ctx, chain, sig, target)
	if result.Err != nil || result.Status != nil {
		return result
	}

	height, err := chain.GetBlockHeight(ctx, target)
	result.ObservedAt = time.Now().UTC()
	if err != nil {
		result.Err = err
		return result
	}

	result.BlockHeight = &height
	return result
}

// evaluateStatus applies a status, if present. An execution error wins over
// the commitment check so a failed transaction is reported regardless of target.
func evaluateStatus(state *trackingState, result PollResult, target Commitment) {
	if result.Status == nil {
		return
	}

	status := *result.Status
	switch {
	case status.Failed():
		state.failTransaction(status)
	case status.Commitment.Satisfies(target):
		state.confirm(status)
	default:
		state.observe(status)
	}
}

func (s Strategy) evaluateWithExpiry(state *trackingState, result PollResult, target Commitment) {
	if result.Status != nil {
		evaluateStatus(state, result, target)
		return
	}

	if result.BlockHeight != nil && s.window.ExpiredAt(state.highestBlockHeight) {
		state.expire()
	}
}
