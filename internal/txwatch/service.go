// Package txwatch runs confirmation trackers on behalf of callers. It adds
// request validation, cross-process claims, outcome persistence, bounded
// concurrency and metrics around the confirmation package.
package txwatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gabapcia/txconfirm/internal/confirmation"
	"github.com/gabapcia/txconfirm/internal/pkg/logger"
	"github.com/gabapcia/txconfirm/internal/pkg/resilience/retry"
	"github.com/gabapcia/txconfirm/internal/pkg/types"
	"github.com/gabapcia/txconfirm/internal/pkg/validator"
	"github.com/gabapcia/txconfirm/internal/pkg/x/chflow"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

const (
	defaultMaxProcessingTime = 2 * time.Minute
	defaultConcurrency       = 16
)

// ErrEmptyTransaction is returned by Submit when no transaction is given.
var ErrEmptyTransaction = errors.New("empty transaction")

// Service tracks transactions until they resolve.
type Service interface {
	// Track validates req and blocks until the signature resolves.
	//
	// The flow is:
	//
	//   - a stored outcome that can no longer change for the target is returned without polling;
	//   - otherwise the signature is claimed for the max processing time and tracked;
	//   - the outcome is persisted unless a stronger one is already stored;
	//   - the claim is released, even if ctx was cancelled.
	//
	// Parameters:
	//   - ctx: Cancelling it aborts tracking with a Cancelled outcome.
	//   - req: The signature, target commitment and optional expiry window.
	//
	// Resolved states are returned as values. Running out of the service's own
	// processing time is Failed(Timeout); only the caller cancelling ctx is
	// Cancelled. The error is non-nil for invalid requests, for
	// ErrAlreadyTracking and for claim failures.
	Track(ctx context.Context, req Request) (confirmation.Outcome, error)

	// TrackAll tracks reqs concurrently and returns their outcomes in request
	// order. Requests for the same signature share one tracker; the first
	// request wins. Per-request errors are joined.
	TrackAll(ctx context.Context, reqs []Request) ([]confirmation.Outcome, error)

	// Stream tracks requests as they arrive and emits results as they
	// resolve. The returned channel is closed once reqs is closed and every
	// started tracker finished, or once ctx is done.
	Stream(ctx context.Context, reqs <-chan Request) <-chan Result

	// LatestExpiryWindow fetches a fresh blockhash and its validity window.
	LatestExpiryWindow(ctx context.Context, commitment confirmation.Commitment) (confirmation.ExpiryWindow, error)

	// Submit relays a signed, base64 encoded transaction and returns its signature.
	Submit(ctx context.Context, encodedTx string, opts SendOptions) (confirmation.Signature, error)

	// Outcome returns the stored outcome for sig or ErrOutcomeNotFound.
	Outcome(ctx context.Context, sig confirmation.Signature) (confirmation.Outcome, error)
}

type service struct {
	tracker   confirmation.Tracker
	blockhash BlockhashSource
	submitter TransactionSubmitter
	storage   OutcomeStorage
	guard     ClaimGuard
	retry     retry.Retry
	metrics   metrics

	defaultCommitment  confirmation.Commitment
	defaultMaxAttempts int
	maxProcessingTime  time.Duration
	concurrency        int
}

var _ Service = (*service)(nil)

func (s *service) target(req Request) confirmation.Commitment {
	if req.Commitment != 0 {
		return req.Commitment
	}
	return s.defaultCommitment
}

// Track implements Service.
func (s *service) Track(ctx context.Context, req Request) (confirmation.Outcome, error) {
	if err := req.validate(); err != nil {
		return confirmation.Outcome{}, err
	}

	target := s.target(req)

	stored, found := s.storedOutcome(ctx, req.Signature)
	if found && stored.Authoritative(target) {
		logger.Debug(ctx, "returning stored outcome", "tx.signature", req.Signature, "tx.state", stored.State.String())
		s.metrics.record(ctx, stored, true)
		return stored, nil
	}

	if err := s.guard.ClaimSignature(ctx, req.Signature, s.maxProcessingTime); err != nil {
		if errors.Is(err, ErrAlreadyTracking) {
			return confirmation.Outcome{}, err
		}
		return confirmation.Outcome{}, fmt.Errorf("claim signature: %w", err)
	}
	defer s.release(ctx, req.Signature)

	// The claim expires after maxProcessingTime, so tracking must stop first.
	trackCtx, cancel := context.WithTimeoutCause(ctx, s.maxProcessingTime,
		fmt.Errorf("%w after %s", confirmation.ErrDeadlineExceeded, s.maxProcessingTime))
	defer cancel()

	outcome, err := s.tracker.Track(trackCtx, req.Signature, req.strategy(s.defaultMaxAttempts), target)
	if err != nil {
		return confirmation.Outcome{}, err
	}

	switch {
	case !outcome.State.IsTerminal():
		// Cancelled outcomes are not persisted.
	case found && !outcome.Supersedes(stored):
		logger.Debug(ctx, "keeping stronger stored outcome",
			"tx.signature", outcome.Signature,
			"tx.state", outcome.State.String(),
			"tx.stored_state", stored.State.String(),
		)
	default:
		s.save(ctx, outcome)
	}

	s.metrics.record(ctx, outcome, false)
	logger.Info(ctx, "transaction tracked",
		"tx.signature", outcome.Signature,
		"tx.state", outcome.State.String(),
		"tx.reason", outcome.Reason.String(),
		"tx.commitment", outcome.Commitment.String(),
		"tx.slot", outcome.Slot,
		"poll.attempts", outcome.Attempts,
	)

	return outcome, nil
}

// storedOutcome loads the persisted outcome for sig. Storage errors are
// logged and treated as a miss.
func (s *service) storedOutcome(ctx context.Context, sig confirmation.Signature) (confirmation.Outcome, bool) {
	stored, err := s.storage.LoadOutcome(ctx, sig)
	switch {
	case errors.Is(err, ErrOutcomeNotFound):
		return confirmation.Outcome{}, false
	case err != nil:
		logger.Warn(ctx, "failed to load stored outcome", "tx.signature", sig, "error", err)
		return confirmation.Outcome{}, false
	}
	return stored, true
}

// save persists outcome even if ctx was cancelled while tracking. A failure
// is logged; the outcome itself is still returned to the caller.
func (s *service) save(ctx context.Context, outcome confirmation.Outcome) {
	ctx = context.WithoutCancel(ctx)

	err := s.retry.Execute(ctx, func() error {
		return s.storage.SaveOutcome(ctx, outcome)
	})
	if err != nil {
		logger.Error(ctx, "failed to persist outcome", "tx.signature", outcome.Signature, "error", err)
	}
}

func (s *service) release(ctx context.Context, sig confirmation.Signature) {
	if err := s.guard.ReleaseSignature(context.WithoutCancel(ctx), sig); err != nil {
		logger.Warn(ctx, "failed to release signature claim", "tx.signature", sig, "error", err)
	}
}

// TrackAll implements Service.
func (s *service) TrackAll(ctx context.Context, reqs []Request) ([]confirmation.Outcome, error) {
	var (
		seen   = types.NewSet[confirmation.Signature]()
		first  = make(map[confirmation.Signature]int, len(reqs))
		unique = make([]int, 0, len(reqs))
	)
	for i, req := range reqs {
		if seen.Insert(req.Signature) {
			first[req.Signature] = i
			unique = append(unique, i)
		}
	}

	var (
		outcomes = make([]confirmation.Outcome, len(reqs))
		errs     = make([]error, len(reqs))
		g        errgroup.Group
	)
	g.SetLimit(s.concurrency)

	for _, i := range unique {
		g.Go(func() error {
			outcome, err := s.Track(ctx, reqs[i])
			outcomes[i] = outcome
			if err != nil {
				errs[i] = fmt.Errorf("track %s: %w", reqs[i].Signature, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	for i, req := range reqs {
		if j := first[req.Signature]; j != i {
			outcomes[i] = outcomes[j]
		}
	}

	return outcomes, errors.Join(errs...)
}

// Stream implements Service.
func (s *service) Stream(ctx context.Context, reqs <-chan Request) <-chan Result {
	results := make(chan Result)

	go func() {
		defer close(results)

		var g errgroup.Group
		g.SetLimit(s.concurrency)

		chflow.Each(ctx, reqs, func(req Request) {
			g.Go(func() error {
				outcome, err := s.Track(ctx, req)
				chflow.Send(ctx, results, Result{Request: req, Outcome: outcome, Err: err})
				return nil
			})
		})

		_ = g.Wait()
	}()

	return results
}

// LatestExpiryWindow implements Service. Transient failures are retried;
// context errors are not.
func (s *service) LatestExpiryWindow(ctx context.Context, commitment confirmation.Commitment) (confirmation.ExpiryWindow, error) {
	if commitment == 0 {
		commitment = s.defaultCommitment
	}

	var window confirmation.ExpiryWindow
	err := s.retry.Execute(ctx, func() error {
		w, err := s.blockhash.GetLatestBlockhash(ctx, commitment)
		if err != nil {
			return err
		}
		window = w
		return nil
	})

	return window, err
}

// Submit implements Service.
func (s *service) Submit(ctx context.Context, encodedTx string, opts SendOptions) (confirmation.Signature, error) {
	if encodedTx == "" {
		return "", ErrEmptyTransaction
	}

	if opts.PreflightCommitment == 0 {
		opts.PreflightCommitment = s.defaultCommitment
	}

	sig, err := s.submitter.SendTransaction(ctx, encodedTx, opts)
	if err != nil {
		return "", err
	}

	logger.Info(ctx, "transaction submitted", "tx.signature", sig, "tx.skip_preflight", opts.SkipPreflight)
	return sig, nil
}

// Outcome implements Service.
func (s *service) Outcome(ctx context.Context, sig confirmation.Signature) (confirmation.Outcome, error) {
	if err := validator.Var(sig, "required,base58sig"); err != nil {
		return confirmation.Outcome{}, err
	}
	return s.storage.LoadOutcome(ctx, sig)
}

type config struct {
	blockhash          BlockhashSource
	submitter          TransactionSubmitter
	storage            OutcomeStorage
	guard              ClaimGuard
	retry              retry.Retry
	meterProvider      metric.MeterProvider
	defaultCommitment  confirmation.Commitment
	defaultMaxAttempts int
	maxProcessingTime  time.Duration
	concurrency        int
}

// Option configures a Service.
type Option func(*config)

// New returns a Service running tracker.
//
// Parameters:
//   - tracker: The confirmation tracker that polls the chain for each request.
//   - opts: Collaborators and limits; see the With* options.
//
// Defaults:
//
//   - commitment:          confirmed
//   - max attempts:        0 (unbounded, only the processing time limits tracking)
//   - max processing time: 2 minutes
//   - concurrency:         16 trackers in TrackAll and Stream
//
// Without options the service can only track: storage and claims are no-ops,
// and blockhash or submission requests fail with ErrChainNotConfigured.
func New(tracker confirmation.Tracker, opts ...Option) *service {
	cfg := config{
		blockhash:         nopChain{},
		submitter:         nopChain{},
		storage:           nopOutcomeStorage{},
		guard:             nopClaimGuard{},
		meterProvider:     otel.GetMeterProvider(),
		defaultCommitment: confirmation.CommitmentConfirmed,
		maxProcessingTime: defaultMaxProcessingTime,
		concurrency:       defaultConcurrency,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.retry == nil {
		cfg.retry = retry.New(
			retry.WithAttempts(3),
			retry.WithDelay(200*time.Millisecond),
			retry.WithMaxDelay(2*time.Second),
			retry.WithRetryIf(func(err error) bool {
				return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
			}),
			retry.WithName("txwatch"),
		)
	}

	return &service{
		tracker:            tracker,
		blockhash:          cfg.blockhash,
		submitter:          cfg.submitter,
		storage:            cfg.storage,
		guard:              cfg.guard,
		retry:              cfg.retry,
		metrics:            newMetrics(cfg.meterProvider),
		defaultCommitment:  cfg.defaultCommitment,
		defaultMaxAttempts: cfg.defaultMaxAttempts,
		maxProcessingTime:  cfg.maxProcessingTime,
		concurrency:        cfg.concurrency,
	}
}

// WithBlockhashSource sets where LatestExpiryWindow reads blockhashes from.
func WithBlockhashSource(b BlockhashSource) Option {
	return func(c *config) {
		c.blockhash = b
	}
}

// WithSubmitter sets how Submit relays transactions.
func WithSubmitter(ts TransactionSubmitter) Option {
	return func(c *config) {
		c.submitter = ts
	}
}

func WithOutcomeStorage(st OutcomeStorage) Option {
	return func(c *config) {
		c.storage = st
	}
}

func WithClaimGuard(g ClaimGuard) Option {
	return func(c *config) {
		c.guard = g
	}
}

// WithRetry replaces the retry policy used for blockhash reads and outcome writes.
func WithRetry(r retry.Retry) Option {
	return func(c *config) {
		c.retry = r
	}
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *config) {
		c.meterProvider = mp
	}
}

// WithDefaultCommitment sets the target used when a request leaves it unset.
// Invalid levels are ignored. Default: confirmed.
func WithDefaultCommitment(commitment confirmation.Commitment) Option {
	return func(c *config) {
		if commitment.Valid() {
			c.defaultCommitment = commitment
		}
	}
}

// WithDefaultMaxAttempts sets the attempt budget used when a request leaves
// it unset. Default: 0, unbounded.
func WithDefaultMaxAttempts(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.defaultMaxAttempts = n
		}
	}
}

// WithMaxProcessingTime bounds a single tracking call and sets the claim TTL.
// Default: 2 minutes.
func WithMaxProcessingTime(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.maxProcessingTime = d
		}
	}
}

// WithConcurrency caps how many trackers TrackAll and Stream run at once.
// Default: 16.
func WithConcurrency(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.concurrency = n
		}
	}
}
