// Package cli exposes the tracking service as the txconfirm command line tool.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/gabapcia/txconfirm/internal/confirmation"
	"github.com/gabapcia/txconfirm/internal/txwatch"

	"github.com/urfave/cli/v3"
)

// ErrNotConfirmed is returned when at least one tracked transaction did not
// reach its target commitment, so the process exits non-zero.
var ErrNotConfirmed = errors.New("transaction not confirmed")

// Run initializes and executes the txconfirm CLI application.
//
// It registers all available commands:
//
//   - `track`: Tracks one or more signatures until they resolve.
//   - `watch`: Tracks signatures read from stdin and streams outcomes.
//   - `send`: Submits a signed transaction, then tracks it.
//   - `blockhash`: Prints the latest blockhash and its expiry window.
//   - `outcome`: Prints a stored outcome.
//   - `deprecated`: Lists deprecated RPC methods and their replacements.
//
// Parameters:
//   - ctx: Context used to control the lifecycle of the CLI application.
//     Cancelling it stops every running tracker.
//   - svc: The txwatch service implementation used by every command.
//
// Arguments are read from os.Args, signatures for `watch` from stdin, and
// results are written to stdout as one JSON object per line.
func Run(ctx context.Context, svc txwatch.Service) error {
	return newApp(svc, os.Stdin, os.Stdout).Run(ctx, os.Args)
}

func newApp(svc txwatch.Service, in io.Reader, out io.Writer) *cli.Command {
	return &cli.Command{
		EnableShellCompletion: true,
		Name:                  "txconfirm",
		Description:           "Track Solana transactions until they reach a commitment level, expire or fail.",
		Usage:                 "txconfirm [command] [flags]",
		Reader:                in,
		Writer:                out,
		Commands: []*cli.Command{
			trackCommand(svc, out),
			watchCommand(svc, in, out),
			sendCommand(svc, out),
			blockhashCommand(svc, out),
			outcomeCommand(svc, out),
			deprecatedCommand(out),
		},
	}
}

// printJSON writes v as a single JSON line.
func printJSON(out io.Writer, v any) error {
	return json.NewEncoder(out).Encode(v)
}

func commitmentFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "commitment",
		Usage: "Target commitment level: processed, confirmed or finalized (default from configuration)",
	}
}

// parseCommitment reads --commitment. An empty value yields zero, which the
// service replaces with its default.
func parseCommitment(c *cli.Command) (confirmation.Commitment, error) {
	value := c.String("commitment")
	if value == "" {
		return 0, nil
	}
	return confirmation.ParseCommitment(value)
}

func windowFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "blockhash",
			Usage: "Blockhash the transaction was built against; enables expiry tracking",
		},
		&cli.Uint64Flag{
			Name:  "last-valid-height",
			Usage: "Last block height at which the blockhash is valid",
		},
	}
}

// parseWindow reads the optional expiry window. Both flags must be set together.
func parseWindow(c *cli.Command) (*confirmation.ExpiryWindow, error) {
	var (
		blockhash = c.String("blockhash")
		height    = c.Uint64("last-valid-height")
	)

	switch {
	case blockhash == "" && height == 0:
		return nil, nil
	case blockhash == "" || height == 0:
		return nil, errors.New("--blockhash and --last-valid-height must be used together")
	}

	return &confirmation.ExpiryWindow{
		Blockhash:            confirmation.Blockhash(blockhash),
		LastValidBlockHeight: height,
	}, nil
}

func maxAttemptsFlag() *cli.IntFlag {
	return &cli.IntFlag{
		Name:  "max-attempts",
		Usage: "Give up after this many polls without a status (0 uses the configured default)",
	}
}

// notConfirmed joins the errors of every outcome that is not Confirmed.
func notConfirmed(outcomes ...confirmation.Outcome) error {
	var errs []error
	for _, o := range outcomes {
		if err := o.Err(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errors.Join(append([]error{ErrNotConfirmed}, errs...)...)
}
