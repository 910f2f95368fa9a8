package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/gabapcia/txconfirm/internal/confirmation"
	"github.com/gabapcia/txconfirm/internal/txwatch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	sigA      = "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW"
	sigB      = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T8Sv3fL2RE8Ew1ezZ1wTqQgsTL1JVaKk8N8wbyrnPpnpj"
	blockhash = "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N"
)

type mockService struct {
	mock.Mock
}

var _ txwatch.Service = (*mockService)(nil)

func (m *mockService) Track(ctx context.Context, req txwatch.Request) (confirmation.Outcome, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(confirmation.Outcome), args.Error(1)
}

func (m *mockService) TrackAll(ctx context.Context, reqs []txwatch.Request) ([]confirmation.Outcome, error) {
	args := m.Called(ctx, reqs)
	return args.Get(0).([]confirmation.Outcome), args.Error(1)
}

func (m *mockService) Stream(ctx context.Context, reqs <-chan txwatch.Request) <-chan txwatch.Result {
	args := m.Called(ctx, reqs)
	return args.Get(0).(<-chan txwatch.Result)
}

func (m *mockService) LatestExpiryWindow(ctx context.Context, commitment confirmation.Commitment) (confirmation.ExpiryWindow, error) {
	args := m.Called(ctx, commitment)
	return args.Get(0).(confirmation.ExpiryWindow), args.Error(1)
}

func (m *mockService) Submit(ctx context.Context, encodedTx string, opts txwatch.SendOptions) (confirmation.Signature, error) {
	args := m.Called(ctx, encodedTx, opts)
	return args.Get(0).(confirmation.Signature), args.Error(1)
}

func (m *mockService) Outcome(ctx context.Context, sig confirmation.Signature) (confirmation.Outcome, error) {
	args := m.Called(ctx, sig)
	return args.Get(0).(confirmation.Outcome), args.Error(1)
}

func run(t *testing.T, svc txwatch.Service, stdin string, args ...string) (string, error) {
	t.Helper()
	return runWithInput(t, svc, strings.NewReader(stdin), args...)
}

func runWithInput(t *testing.T, svc txwatch.Service, in io.Reader, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	app := newApp(svc, in, &out)
	err := app.Run(t.Context(), append([]string{"txconfirm"}, args...))
	return out.String(), err
}

// drainStream answers Stream by consuming every request and closing the
// results once the input is closed.
func drainStream(svc *mockService) {
	results := make(chan txwatch.Result)
	svc.On("Stream", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			reqs := args.Get(1).(<-chan txwatch.Request)
			go func() {
				defer close(results)
				for range reqs {
				}
			}()
		}).
		Return((<-chan txwatch.Result)(results)).Once()
}

func decodeLines[T any](t *testing.T, out string) []T {
	t.Helper()

	var values []T
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		var v T
		require.NoError(t, json.Unmarshal([]byte(line), &v))
		values = append(values, v)
	}
	return values
}

func TestTrackCommand(t *testing.T) {
	t.Run("prints confirmed outcomes and succeeds", func(t *testing.T) {
		// Arrange
		svc := new(mockService)
		svc.On("TrackAll", mock.Anything, []txwatch.Request{
			{Signature: sigA, Commitment: confirmation.CommitmentFinalized, MaxAttempts: 5},
			{Signature: sigB, Commitment: confirmation.CommitmentFinalized, MaxAttempts: 5},
		}).Return([]confirmation.Outcome{
			{Signature: sigA, State: confirmation.StateConfirmed, Commitment: confirmation.CommitmentFinalized},
			{Signature: sigB, State: confirmation.StateConfirmed, Commitment: confirmation.CommitmentFinalized},
		}, nil).Once()

		// Act
		out, err := run(t, svc, "", "track",
			"--signature", sigA, "--signature", sigB,
			"--commitment", "finalized", "--max-attempts", "5")

		// Assert
		require.NoError(t, err)
		outcomes := decodeLines[confirmation.Outcome](t, out)
		require.Len(t, outcomes, 2)
		assert.Equal(t, confirmation.Signature(sigA), outcomes[0].Signature)
		assert.Equal(t, confirmation.StateConfirmed, outcomes[1].State)
		svc.AssertExpectations(t)
	})

	t.Run("passes the expiry window", func(t *testing.T) {
		// Arrange
		window := &confirmation.ExpiryWindow{Blockhash: blockhash, LastValidBlockHeight: 3090}
		svc := new(mockService)
		svc.On("TrackAll", mock.Anything, []txwatch.Request{
			{Signature: sigA, Window: window},
		}).Return([]confirmation.Outcome{
			{Signature: sigA, State: confirmation.StateConfirmed},
		}, nil).Once()

		// Act
		_, err := run(t, svc, "", "track",
			"--signature", sigA, "--blockhash", blockhash, "--last-valid-height", "3090")

		// Assert
		require.NoError(t, err)
		svc.AssertExpectations(t)
	})

	t.Run("fails when an outcome is not confirmed", func(t *testing.T) {
		// Arrange
		svc := new(mockService)
		svc.On("TrackAll", mock.Anything, mock.Anything).Return([]confirmation.Outcome{
			{Signature: sigA, State: confirmation.StateExpired},
		}, nil).Once()

		// Act
		out, err := run(t, svc, "", "track", "--signature", sigA)

		// Assert
		assert.ErrorIs(t, err, ErrNotConfirmed)
		assert.ErrorIs(t, err, confirmation.ErrExpired)
		assert.Len(t, decodeLines[confirmation.Outcome](t, out), 1)
	})

	t.Run("prints resolved outcomes before returning request errors", func(t *testing.T) {
		// Arrange
		svc := new(mockService)
		svc.On("TrackAll", mock.Anything, mock.Anything).Return([]confirmation.Outcome{
			{Signature: sigA, State: confirmation.StateConfirmed},
			{},
		}, txwatch.ErrAlreadyTracking).Once()

		// Act
		out, err := run(t, svc, "", "track", "--signature", sigA, "--signature", sigB)

		// Assert
		assert.ErrorIs(t, err, txwatch.ErrAlreadyTracking)
		assert.Len(t, decodeLines[confirmation.Outcome](t, out), 1)
	})

	t.Run("rejects an unknown commitment", func(t *testing.T) {
		svc := new(mockService)

		_, err := run(t, svc, "", "track", "--signature", sigA, "--commitment", "rooted")

		assert.ErrorIs(t, err, confirmation.ErrInvalidCommitment)
		svc.AssertNotCalled(t, "TrackAll", mock.Anything, mock.Anything)
	})

	t.Run("rejects a partial expiry window", func(t *testing.T) {
		svc := new(mockService)

		_, err := run(t, svc, "", "track", "--signature", sigA, "--blockhash", blockhash)

		assert.ErrorContains(t, err, "must be used together")
		svc.AssertNotCalled(t, "TrackAll", mock.Anything, mock.Anything)
	})

	t.Run("requires a signature", func(t *testing.T) {
		_, err := run(t, new(mockService), "", "track")
		assert.Error(t, err)
	})
}

func TestWatchCommand(t *testing.T) {
	t.Run("streams one line per request read from stdin", func(t *testing.T) {
		// Arrange
		svc := new(mockService)
		results := make(chan txwatch.Result)
		svc.On("Stream", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				reqs := args.Get(1).(<-chan txwatch.Request)
				go func() {
					defer close(results)
					for req := range reqs {
						assert.Equal(t, confirmation.CommitmentConfirmed, req.Commitment)
						if req.Signature == sigB {
							results <- txwatch.Result{Request: req, Err: txwatch.ErrAlreadyTracking}
							continue
						}
						results <- txwatch.Result{
							Request: req,
							Outcome: confirmation.Outcome{Signature: req.Signature, State: confirmation.StateConfirmed},
						}
					}
				}()
			}).
			Return((<-chan txwatch.Result)(results)).Once()

		// Act
		out, err := run(t, svc, sigA+"\n\n  "+sigB+"  \n", "watch", "--commitment", "confirmed")

		// Assert
		require.NoError(t, err)
		lines := decodeLines[watchResult](t, out)
		require.Len(t, lines, 2)

		assert.Equal(t, confirmation.Signature(sigA), lines[0].Signature)
		require.NotNil(t, lines[0].Outcome)
		assert.Equal(t, confirmation.StateConfirmed, lines[0].Outcome.State)
		assert.Empty(t, lines[0].Error)

		assert.Equal(t, confirmation.Signature(sigB), lines[1].Signature)
		assert.Nil(t, lines[1].Outcome)
		assert.Equal(t, txwatch.ErrAlreadyTracking.Error(), lines[1].Error)
		svc.AssertExpectations(t)
	})
}

func TestWatchCommand_InputErrors(t *testing.T) {
	t.Run("reports a failing reader", func(t *testing.T) {
		// Arrange
		svc := new(mockService)
		drainStream(svc)
		readErr := errors.New("broken pipe")

		// Act
		_, err := runWithInput(t, svc, iotest.ErrReader(readErr), "watch")

		// Assert
		assert.ErrorIs(t, err, readErr)
		assert.ErrorContains(t, err, "read signatures")
	})

	t.Run("reports a line longer than the scanner buffer", func(t *testing.T) {
		svc := new(mockService)
		drainStream(svc)

		_, err := run(t, svc, strings.Repeat("x", bufio.MaxScanTokenSize+1)+"\n", "watch")

		assert.ErrorIs(t, err, bufio.ErrTooLong)
	})

	t.Run("clean end of input succeeds", func(t *testing.T) {
		svc := new(mockService)
		drainStream(svc)

		_, err := run(t, svc, "", "watch")

		assert.NoError(t, err)
	})
}

func TestSendCommand(t *testing.T) {
	t.Run("submits then tracks the returned signature", func(t *testing.T) {
		// Arrange
		svc := new(mockService)
		svc.On("Submit", mock.Anything, "AQAB", txwatch.SendOptions{
			SkipPreflight:       true,
			PreflightCommitment: confirmation.CommitmentConfirmed,
		}).Return(confirmation.Signature(sigA), nil).Once()
		svc.On("Track", mock.Anything, txwatch.Request{
			Signature:  sigA,
			Commitment: confirmation.CommitmentConfirmed,
			Window:     &confirmation.ExpiryWindow{Blockhash: blockhash, LastValidBlockHeight: 100},
		}).Return(confirmation.Outcome{Signature: sigA, State: confirmation.StateConfirmed}, nil).Once()

		// Act
		out, err := run(t, svc, "", "send",
			"--transaction", "AQAB", "--skip-preflight", "--commitment", "confirmed",
			"--blockhash", blockhash, "--last-valid-height", "100")

		// Assert
		require.NoError(t, err)
		outcomes := decodeLines[confirmation.Outcome](t, out)
		require.Len(t, outcomes, 1)
		assert.Equal(t, confirmation.Signature(sigA), outcomes[0].Signature)
		svc.AssertExpectations(t)
	})

	t.Run("does not track when submission fails", func(t *testing.T) {
		// Arrange
		svc := new(mockService)
		submitErr := errors.New("preflight failed")
		svc.On("Submit", mock.Anything, "AQAB", mock.Anything).Return(confirmation.Signature(""), submitErr).Once()

		// Act
		_, err := run(t, svc, "", "send", "--transaction", "AQAB")

		// Assert
		assert.ErrorIs(t, err, submitErr)
		svc.AssertNotCalled(t, "Track", mock.Anything, mock.Anything)
	})

	t.Run("fails when the transaction is not confirmed", func(t *testing.T) {
		// Arrange
		svc := new(mockService)
		svc.On("Submit", mock.Anything, "AQAB", mock.Anything).Return(confirmation.Signature(sigA), nil).Once()
		svc.On("Track", mock.Anything, mock.Anything).Return(confirmation.Outcome{
			Signature: sigA,
			State:     confirmation.StateFailed,
			Reason:    confirmation.FailureTransactionError,
		}, nil).Once()

		// Act
		_, err := run(t, svc, "", "send", "--transaction", "AQAB")

		// Assert
		assert.ErrorIs(t, err, ErrNotConfirmed)
	})
}

func TestBlockhashCommand(t *testing.T) {
	t.Run("prints the expiry window", func(t *testing.T) {
		// Arrange
		svc := new(mockService)
		svc.On("LatestExpiryWindow", mock.Anything, confirmation.CommitmentFinalized).
			Return(confirmation.ExpiryWindow{Blockhash: blockhash, LastValidBlockHeight: 3090}, nil).Once()

		// Act
		out, err := run(t, svc, "", "blockhash", "--commitment", "finalized")

		// Assert
		require.NoError(t, err)
		assert.JSONEq(t, `{"blockhash":"`+blockhash+`","lastValidBlockHeight":3090}`, out)
		svc.AssertExpectations(t)
	})

	t.Run("propagates service errors", func(t *testing.T) {
		svc := new(mockService)
		svc.On("LatestExpiryWindow", mock.Anything, confirmation.Commitment(0)).
			Return(confirmation.ExpiryWindow{}, txwatch.ErrChainNotConfigured).Once()

		_, err := run(t, svc, "", "blockhash")

		assert.ErrorIs(t, err, txwatch.ErrChainNotConfigured)
	})
}

func TestOutcomeCommand(t *testing.T) {
	t.Run("prints the stored outcome", func(t *testing.T) {
		svc := new(mockService)
		svc.On("Outcome", mock.Anything, confirmation.Signature(sigA)).
			Return(confirmation.Outcome{Signature: sigA, State: confirmation.StateExpired}, nil).Once()

		out, err := run(t, svc, "", "outcome", "--signature", sigA)

		require.NoError(t, err)
		outcomes := decodeLines[confirmation.Outcome](t, out)
		require.Len(t, outcomes, 1)
		assert.Equal(t, confirmation.StateExpired, outcomes[0].State)
	})

	t.Run("returns not found", func(t *testing.T) {
		svc := new(mockService)
		svc.On("Outcome", mock.Anything, confirmation.Signature(sigA)).
			Return(confirmation.Outcome{}, txwatch.ErrOutcomeNotFound).Once()

		_, err := run(t, svc, "", "outcome", "--signature", sigA)

		assert.ErrorIs(t, err, txwatch.ErrOutcomeNotFound)
	})
}

func TestDeprecatedCommand(t *testing.T) {
	t.Run("lists every deprecated method", func(t *testing.T) {
		out, err := run(t, new(mockService), "", "deprecated")

		require.NoError(t, err)
		methods := decodeLines[map[string]string](t, out)
		assert.NotEmpty(t, methods)
		for _, m := range methods {
			assert.NotEmpty(t, m["method"])
		}
	})

	t.Run("shows the replacement for one method", func(t *testing.T) {
		out, err := run(t, new(mockService), "", "deprecated", "--method", "getRecentBlockhash")

		require.NoError(t, err)
		methods := decodeLines[map[string]string](t, out)
		require.Len(t, methods, 1)
		assert.Equal(t, "getLatestBlockhash", methods[0]["replacement"])
	})

	t.Run("fails for a current method", func(t *testing.T) {
		_, err := run(t, new(mockService), "", "deprecated", "--method", "getBlockHeight")

		assert.ErrorContains(t, err, "not a deprecated method")
	})
}
