package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/gabapcia/txconfirm/internal/confirmation"
	"github.com/gabapcia/txconfirm/internal/infra/blockchain/solana"
	"github.com/gabapcia/txconfirm/internal/txwatch"

	"github.com/urfave/cli/v3"
)

func blockhashCommand(svc txwatch.Service, out io.Writer) *cli.Command {
	return &cli.Command{
		Name:        "blockhash",
		Description: "Fetch the latest blockhash and the last block height at which it is valid.",
		Usage:       "Prints the latest blockhash and its expiry window.",
		Flags:       []cli.Flag{commitmentFlag()},
		Action: func(ctx context.Context, c *cli.Command) error {
			commitment, err := parseCommitment(c)
			if err != nil {
				return err
			}

			window, err := svc.LatestExpiryWindow(ctx, commitment)
			if err != nil {
				return err
			}
			return printJSON(out, window)
		},
	}
}

func outcomeCommand(svc txwatch.Service, out io.Writer) *cli.Command {
	return &cli.Command{
		Name:        "outcome",
		Description: "Print the stored outcome of a previously tracked signature.",
		Usage:       "Looks up a stored outcome. Requires outcome storage to be enabled.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "signature",
				Usage:    "Transaction signature to look up",
				Required: true,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			outcome, err := svc.Outcome(ctx, confirmation.Signature(c.String("signature")))
			if err != nil {
				return err
			}
			return printJSON(out, outcome)
		},
	}
}

func deprecatedCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:        "deprecated",
		Description: "List deprecated Solana RPC methods and what replaces them.",
		Usage:       "Prints deprecated RPC methods, or the replacement for one method.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "method",
				Usage: "Only show this method",
			},
		},
		Action: func(_ context.Context, c *cli.Command) error {
			method := c.String("method")
			if method == "" {
				for _, m := range solana.DeprecatedMethods() {
					if err := printJSON(out, m); err != nil {
						return err
					}
				}
				return nil
			}

			m, ok := solana.LookupDeprecated(method)
			if !ok {
				return fmt.Errorf("%s is not a deprecated method", method)
			}
			return printJSON(out, m)
		},
	}
}
