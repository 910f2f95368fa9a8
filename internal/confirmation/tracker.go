// Package confirmation determines whether a submitted transaction reached a
// target commitment level. A tracker polls a shared, read-only Blockchain
// capability on a fixed interval until the transaction is confirmed, fails on
// chain, expires with its blockhash, exhausts its attempt budget, or the
// caller cancels the context.
package confirmation

import (
	"context"
	"errors"
	"time"

	"github.com/gabapcia/txconfirm/internal/pkg/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultPollInterval           = time.Second
	defaultMaxConsecutiveFailures = 5

	tracerName = "github.com/gabapcia/txconfirm/internal/confirmation"
)

var (
	// ErrInvalidSignature is returned when Track is called with an empty signature.
	ErrInvalidSignature = errors.New("invalid transaction signature")

	// ErrDeadlineExceeded marks a context cancelled by a processing budget
	// rather than by the caller. Use it as the cause passed to
	// context.WithTimeoutCause.
	ErrDeadlineExceeded = errors.New("tracking deadline exceeded")
)

// Tracker drives polling for a single signature until it resolves.
type Tracker interface {
	// Track blocks until sig reaches a final state and returns it. The
	// returned Outcome is never Pending. Terminal states are returned as
	// values; the error is non-nil only for invalid arguments.
	//
	// Cancelling ctx stops polling and yields a Cancelled outcome, unless the
	// context cause wraps ErrDeadlineExceeded, which yields Failed(Timeout).
	Track(ctx context.Context, sig Signature, strategy Strategy, target Commitment) (Outcome, error)
}

// tracker is safe for concurrent use: it holds only immutable configuration
// and every Track call keeps its own state.
type tracker struct {
	chain                  Blockchain
	pollInterval           time.Duration
	maxConsecutiveFailures uint
	tracer                 trace.Tracer
}

var _ Tracker = (*tracker)(nil)

// Track implements Tracker.
func (t *tracker) Track(ctx context.Context, sig Signature, strategy Strategy, target Commitment) (Outcome, error) {
	if sig == "" {
		return Outcome{}, ErrInvalidSignature
	}

	if !target.Valid() {
		return Outcome{}, ErrInvalidCommitment
	}

	if err := strategy.validate(); err != nil {
		return Outcome{}, err
	}

	ctx, span := t.tracer.Start(ctx, "confirmation.Track", trace.WithAttributes(
		attribute.String("tx.signature", string(sig)),
		attribute.String("tx.strategy", strategy.Kind().String()),
		attribute.String("tx.target_commitment", target.String()),
	))
	defer span.End()

	outcome := t.run(ctx, sig, strategy, target)

	span.SetAttributes(
		attribute.String("tx.state", outcome.State.String()),
		attribute.Int("poll.attempts", outcome.Attempts),
	)
	if err := outcome.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
	}

	return outcome, nil
}

// run is the polling loop. The only suspension points are the RPC calls made
// by the strategy and the wait between ticks.
func (t *tracker) run(ctx context.Context, sig Signature, strategy Strategy, target Commitment) Outcome {
	var (
		state = newTrackingState(sig)
		steps = strategy.steps()
	)

	for {
		if ctx.Err() != nil {
			state.interrupt(context.Cause(ctx))
			break
		}

		state.recordAttempt()
		result := steps.poll(ctx, t.chain, sig, target)

		// A result that raced with cancellation is discarded.
		if ctx.Err() != nil {
			state.interrupt(context.Cause(ctx))
			break
		}

		t.apply(ctx, state, steps, result, target)

		if !state.resolved() && result.Status == nil && strategy.attemptsExhausted(state.outcome.Attempts) {
			state.timeout(result.Err)
		}

		if state.resolved() {
			break
		}

		if !t.wait(ctx) {
			state.interrupt(context.Cause(ctx))
			break
		}
	}

	return state.outcome
}

func (t *tracker) apply(ctx context.Context, state *trackingState, steps steps, result PollResult, target Commitment) {
	if result.Err != nil {
		failures := state.recordFailure()
		logger.Warn(ctx, "signature poll failed",
			"tx.signature", state.outcome.Signature,
			"poll.attempt", state.outcome.Attempts,
			"poll.consecutive_failures", failures,
			"error", result.Err,
		)

		if failures > t.maxConsecutiveFailures {
			state.timeout(result.Err)
		}
		return
	}

	state.recordSuccess(result)
	steps.evaluate(state, result, target)

	logger.Debug(ctx, "signature polled",
		"tx.signature", state.outcome.Signature,
		"tx.state", state.outcome.State.String(),
		"tx.commitment", state.outcome.Commitment.String(),
		"poll.attempt", state.outcome.Attempts,
		"poll.has_status", result.Status != nil,
		"chain.block_height", state.highestBlockHeight,
	)
}

// wait sleeps for one poll interval. It returns false if ctx finished first.
func (t *tracker) wait(ctx context.Context) bool {
	timer := time.NewTimer(t.pollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

type config struct {
	pollInterval           time.Duration
	maxConsecutiveFailures uint
	tracerProvider         trace.TracerProvider
}

// Option configures a Tracker.
type Option func(*config)

// New returns a Tracker polling chain.
//
// Parameters:
//   - chain: The read-only RPC capability shared by every Track call.
//   - opts: Optional settings applied over the defaults below.
//
// Defaults:
//
//   - poll interval:            1 second
//   - max consecutive failures: 5 transient RPC errors before Failed(Timeout)
//   - tracer provider:          the global OpenTelemetry provider
func New(chain Blockchain, opts ...Option) *tracker {
	cfg := config{
		pollInterval:           defaultPollInterval,
		maxConsecutiveFailures: defaultMaxConsecutiveFailures,
		tracerProvider:         otel.GetTracerProvider(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &tracker{
		chain:                  chain,
		pollInterval:           cfg.pollInterval,
		maxConsecutiveFailures: cfg.maxConsecutiveFailures,
		tracer:                 cfg.tracerProvider.Tracer(tracerName),
	}
}

// WithPollInterval sets the delay between poll ticks. Non-positive values are ignored.
func WithPollInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithMaxConsecutiveFailures sets how many transient RPC failures in a row
// are tolerated. Exceeding it resolves the outcome as Failed(Timeout).
func WithMaxConsecutiveFailures(n uint) Option {
	return func(c *config) {
		c.maxConsecutiveFailures = n
	}
}

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) {
		c.tracerProvider = tp
	}
}
