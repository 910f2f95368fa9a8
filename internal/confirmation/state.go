package confirmation

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrExpired indicates the blockhash window passed without the transaction
	// landing. The caller must rebuild with a fresh blockhash and resubmit.
	ErrExpired = errors.New("transaction expired: blockhash is no longer valid")

	// ErrTimeout indicates the attempt budget (or the transient failure budget)
	// was exhausted while the status was unknown. The transaction may still land.
	ErrTimeout = errors.New("transaction confirmation timed out")

	// ErrTransactionFailed indicates the network executed the transaction and
	// reported an error. This outcome is authoritative.
	ErrTransactionFailed = errors.New("transaction failed on chain")

	// ErrCancelled indicates the caller aborted tracking before a terminal state.
	ErrCancelled = errors.New("transaction tracking cancelled")

	// ErrUnresolved is returned by Outcome.Err for an outcome that never left Pending.
	ErrUnresolved = errors.New("transaction outcome unresolved")
)

// State is the lifecycle position of a tracked transaction.
type State uint8

const (
	StatePending   State = iota // tracking in progress
	StateConfirmed              // reached the target commitment
	StateExpired                // blockhash window passed with no status
	StateFailed                 // see FailureReason
	StateCancelled              // client-side abort, not a protocol outcome
)

var stateNames = map[State]string{
	StatePending:   "pending",
	StateConfirmed: "confirmed",
	StateExpired:   "expired",
	StateFailed:    "failed",
	StateCancelled: "cancelled",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}

	return fmt.Sprintf("state(%d)", uint8(s))
}

// IsTerminal reports whether s is one of the protocol terminal states
// (Confirmed, Expired or Failed). Cancelled is final but not terminal.
func (s State) IsTerminal() bool {
	return s == StateConfirmed || s == StateExpired || s == StateFailed
}

func (s State) MarshalText() ([]byte, error) {
	n, ok := stateNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown state %d", uint8(s))
	}

	return []byte(n), nil
}

func (s *State) UnmarshalText(data []byte) error {
	for state, n := range stateNames {
		if n == string(data) {
			*s = state
			return nil
		}
	}

	return fmt.Errorf("unknown state %q", data)
}

// FailureReason qualifies a Failed outcome.
type FailureReason uint8

const (
	FailureNone             FailureReason = iota
	FailureTimeout                        // attempt or transient failure budget exhausted
	FailureTransactionError               // the network rejected or reverted the transaction
)

var failureReasonNames = map[FailureReason]string{
	FailureNone:             "",
	FailureTimeout:          "timeout",
	FailureTransactionError: "transaction_error",
}

func (r FailureReason) String() string {
	if n, ok := failureReasonNames[r]; ok {
		return n
	}

	return fmt.Sprintf("reason(%d)", uint8(r))
}

func (r FailureReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *FailureReason) UnmarshalText(data []byte) error {
	for reason, n := range failureReasonNames {
		if n == string(data) {
			*r = reason
			return nil
		}
	}

	return fmt.Errorf("unknown failure reason %q", data)
}

// Outcome is the final result of tracking one signature.
type Outcome struct {
	Signature        Signature       `json:"signature"`
	State            State           `json:"state"`
	Commitment       Commitment      `json:"commitment,omitempty"` // highest level observed
	Slot             uint64          `json:"slot,omitempty"`
	Reason           FailureReason   `json:"reason,omitempty"`
	TransactionError json.RawMessage `json:"transactionError,omitempty"`
	Detail           string          `json:"detail,omitempty"`
	Attempts         int             `json:"attempts"`
	StartedAt        time.Time       `json:"startedAt"`
	ResolvedAt       time.Time       `json:"resolvedAt"`

	cause error
}

// Err maps the outcome onto the package sentinel errors so callers can branch
// with errors.Is. A confirmed outcome returns nil.
func (o Outcome) Err() error {
	switch o.State {
	case StateConfirmed:
		return nil
	case StateExpired:
		return ErrExpired
	case StateFailed:
		if o.Reason == FailureTransactionError {
			return fmt.Errorf("%w: %s", ErrTransactionFailed, o.TransactionError)
		}
		return o.wrap(ErrTimeout)
	case StateCancelled:
		return o.wrap(ErrCancelled)
	default:
		return ErrUnresolved
	}
}

func (o Outcome) wrap(sentinel error) error {
	switch {
	case o.cause != nil:
		return errors.Join(sentinel, o.cause)
	case o.Detail != "":
		return fmt.Errorf("%w: %s", sentinel, o.Detail)
	default:
		return sentinel
	}
}

// Authoritative reports whether the outcome can never change for this
// signature at the given target: a confirmation at or above target, an
// on-chain failure, or an expired blockhash.
func (o Outcome) Authoritative(target Commitment) bool {
	switch o.State {
	case StateConfirmed:
		return o.Commitment.Satisfies(target)
	case StateExpired:
		return true
	case StateFailed:
		return o.Reason == FailureTransactionError
	default:
		return false
	}
}

// Supersedes reports whether o carries at least as much information as prev
// about the same signature, so a store may replace prev with o. A client-side
// timeout never replaces a protocol outcome, and a confirmation only replaces
// one at the same or a lower commitment.
func (o Outcome) Supersedes(prev Outcome) bool {
	if !o.State.IsTerminal() {
		return false
	}

	switch {
	case prev.State == StateConfirmed:
		return o.State == StateConfirmed && o.Commitment >= prev.Commitment
	case prev.State == StateExpired, prev.State == StateFailed && prev.Reason == FailureTransactionError:
		return o.Reason != FailureTimeout
	default:
		return true
	}
}

// trackingState is the mutable state of one tracking call. Every transition
// method is a no-op once the state has resolved, which keeps terminal states
// immutable regardless of what later polls report.
type trackingState struct {
	outcome             Outcome
	consecutiveFailures uint
	highestBlockHeight  uint64
}

func newTrackingState(sig Signature) *trackingState {
	return &trackingState{
		outcome: Outcome{
			Signature: sig,
			State:     StatePending,
			StartedAt: time.Now().UTC(),
		},
	}
}

func (s *trackingState) resolved() bool {
	return s.outcome.State != StatePending
}

func (s *trackingState) recordAttempt() {
	if s.resolved() {
		return
	}

	s.outcome.Attempts++
}

// recordFailure counts a transient poll failure and returns the number of
// consecutive failures so far.
func (s *trackingState) recordFailure() uint {
	if s.resolved() {
		return s.consecutiveFailures
	}

	s.consecutiveFailures++
	return s.consecutiveFailures
}

// recordSuccess resets the failure streak and folds the observed height into
// the running maximum so a lagging node can never move the height backwards.
func (s *trackingState) recordSuccess(result PollResult) {
	if s.resolved() {
		return
	}

	s.consecutiveFailures = 0
	if result.BlockHeight != nil && *result.BlockHeight > s.highestBlockHeight {
		s.highestBlockHeight = *result.BlockHeight
	}
}

// observe records an intermediate status below the target.
func (s *trackingState) observe(status SignatureStatus) {
	if s.resolved() {
		return
	}

	if status.Commitment > s.outcome.Commitment {
		s.outcome.Commitment = status.Commitment
	}
	s.outcome.Slot = status.Slot
}

func (s *trackingState) confirm(status SignatureStatus) {
	if s.resolved() {
		return
	}

	s.observe(status)
	s.finalize(StateConfirmed, FailureNone, nil)
}

func (s *trackingState) expire() {
	if s.resolved() {
		return
	}

	s.finalize(StateExpired, FailureNone, nil)
}

func (s *trackingState) failTransaction(status SignatureStatus) {
	if s.resolved() {
		return
	}

	s.observe(status)
	s.outcome.TransactionError = status.Err
	s.finalize(StateFailed, FailureTransactionError, nil)
}

func (s *trackingState) timeout(cause error) {
	if s.resolved() {
		return
	}

	s.finalize(StateFailed, FailureTimeout, cause)
}

func (s *trackingState) cancel(cause error) {
	if s.resolved() {
		return
	}

	s.finalize(StateCancelled, FailureNone, cause)
}

// interrupt resolves a tracking run stopped by its context.
func (s *trackingState) interrupt(cause error) {
	if errors.Is(cause, ErrDeadlineExceeded) {
		s.timeout(cause)
		return
	}
	s.cancel(cause)
}

func (s *trackingState) finalize(state State, reason FailureReason, cause error) {
	s.outcome.State = state
	s.outcome.Reason = reason
	s.outcome.ResolvedAt = time.Now().UTC()
	s.outcome.cause = cause
	if cause != nil {
		s.outcome.Detail = cause.Error()
	}
}
