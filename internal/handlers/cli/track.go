package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gabapcia/txconfirm/internal/confirmation"
	"github.com/gabapcia/txconfirm/internal/pkg/x/chflow"
	"github.com/gabapcia/txconfirm/internal/txwatch"

	"github.com/urfave/cli/v3"
)

// trackCommand tracks one or more signatures and prints one outcome per line.
//
//	txconfirm track --signature 5VER... --commitment finalized
func trackCommand(svc txwatch.Service, out io.Writer) *cli.Command {
	return &cli.Command{
		Name:        "track",
		Description: "Poll the network until each signature is confirmed, expired or failed.",
		Usage:       "Tracks signatures. Exits non-zero unless every signature is confirmed.",
		Flags: append([]cli.Flag{
			&cli.StringSliceFlag{
				Name:     "signature",
				Usage:    "Transaction signature to track (repeatable)",
				Required: true,
			},
			commitmentFlag(),
			maxAttemptsFlag(),
		}, windowFlags()...),
		Action: func(ctx context.Context, c *cli.Command) error {
			commitment, err := parseCommitment(c)
			if err != nil {
				return err
			}

			window, err := parseWindow(c)
			if err != nil {
				return err
			}

			signatures := c.StringSlice("signature")
			reqs := make([]txwatch.Request, len(signatures))
			for i, sig := range signatures {
				reqs[i] = txwatch.Request{
					Signature:   confirmation.Signature(sig),
					Commitment:  commitment,
					Window:      window,
					MaxAttempts: int(c.Int("max-attempts")),
				}
			}

			outcomes, err := svc.TrackAll(ctx, reqs)
			for _, o := range outcomes {
				if o.Signature == "" {
					continue
				}
				if perr := printJSON(out, o); perr != nil {
					return perr
				}
			}
			if err != nil {
				return err
			}

			return notConfirmed(outcomes...)
		},
	}
}

// watchResult is the line printed for every streamed request.
type watchResult struct {
	Signature confirmation.Signature `json:"signature"`
	Outcome   *confirmation.Outcome  `json:"outcome,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// watchCommand reads signatures from stdin, one per line, and prints
// outcomes as they resolve. It stops at EOF once every tracker finished.
//
//	solana-cli ... | txconfirm watch --commitment confirmed
func watchCommand(svc txwatch.Service, in io.Reader, out io.Writer) *cli.Command {
	return &cli.Command{
		Name:        "watch",
		Description: "Track signatures read from standard input, one per line, and stream outcomes.",
		Usage:       "Streams outcomes for signatures read from stdin.",
		Flags: []cli.Flag{
			commitmentFlag(),
			maxAttemptsFlag(),
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			commitment, err := parseCommitment(c)
			if err != nil {
				return err
			}
			maxAttempts := int(c.Int("max-attempts"))

			var (
				reqs    = make(chan txwatch.Request)
				readErr = make(chan error, 1)
			)
			go func() {
				defer close(reqs)

				scanner := bufio.NewScanner(in)
				defer func() { readErr <- scanner.Err() }()

				for scanner.Scan() {
					sig := strings.TrimSpace(scanner.Text())
					if sig == "" {
						continue
					}

					req := txwatch.Request{
						Signature:   confirmation.Signature(sig),
						Commitment:  commitment,
						MaxAttempts: maxAttempts,
					}
					if !chflow.Send(ctx, reqs, req) {
						return
					}
				}
			}()

			for result := range svc.Stream(ctx, reqs) {
				line := watchResult{Signature: result.Request.Signature}
				if result.Err != nil {
					line.Error = result.Err.Error()
				} else {
					line.Outcome = &result.Outcome
				}

				if err := printJSON(out, line); err != nil {
					return err
				}
			}

			// The stream only drains after stdin is closed, unless ctx ended.
			if ctx.Err() != nil {
				return nil
			}
			if err := <-readErr; err != nil {
				return fmt.Errorf("read signatures: %w", err)
			}
			return nil
		},
	}
}

// sendCommand submits a signed transaction and tracks it.
//
//	txconfirm send --transaction AQAB... --blockhash EkSn... --last-valid-height 3090
func sendCommand(svc txwatch.Service, out io.Writer) *cli.Command {
	return &cli.Command{
		Name:        "send",
		Description: "Submit a signed, base64 encoded transaction and track it until it resolves.",
		Usage:       "Submits and tracks a transaction.",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:     "transaction",
				Usage:    "Signed transaction in base64 wire format",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "skip-preflight",
				Usage: "Skip the node's preflight simulation",
			},
			commitmentFlag(),
			maxAttemptsFlag(),
		}, windowFlags()...),
		Action: func(ctx context.Context, c *cli.Command) error {
			commitment, err := parseCommitment(c)
			if err != nil {
				return err
			}

			window, err := parseWindow(c)
			if err != nil {
				return err
			}

			sig, err := svc.Submit(ctx, c.String("transaction"), txwatch.SendOptions{
				SkipPreflight:       c.Bool("skip-preflight"),
				PreflightCommitment: commitment,
			})
			if err != nil {
				return err
			}

			outcome, err := svc.Track(ctx, txwatch.Request{
				Signature:   sig,
				Commitment:  commitment,
				Window:      window,
				MaxAttempts: int(c.Int("max-attempts")),
			})
			if err != nil {
				return err
			}

			if err := printJSON(out, outcome); err != nil {
				return err
			}
			return notConfirmed(outcome)
		},
	}
}
