package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/goldium-labs/goldium/client"
	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"
)

func txListCommand() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Aliases:   []string{"ls"},
		Usage:     "List tracked transactions for a wallet",
		ArgsUsage: "WALLET_ADDRESS",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Value:   "http://localhost:8080",
				Usage:   "HTTP server URL",
				EnvVars: []string{"GOLDIUM_SERVER_URL"},
			},
			&cli.StringFlag{
				Name:  "type",
				Usage: "Filter by transaction type (swap, send, stake, unstake, mint)",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Value:   10,
				Usage:   "Maximum number of transactions to retrieve",
			},
			&cli.StringSliceFlag{
				Name:    "must-jq",
				Usage:   "jq filter expression applied to each transaction; only matching ones are shown (can be specified multiple times, all must match)",
				Aliases: []string{"jq"},
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output as JSON (one transaction per line)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("wallet address is required")
			}

			address := c.Args().Get(0)
			serverURL := c.String("server")
			txType := c.String("type")
			limit := c.Int("limit")
			jsonOutput := c.Bool("json")

			if limit < 1 {
				return fmt.Errorf("limit must be at least 1")
			}

			filters, err := compileJQFilters(c.StringSlice("must-jq"))
			if err != nil {
				return err
			}

			cl := client.NewClient(serverURL, nil, errorLogger())

			txs, err := cl.ListTransactions(context.Background(), address, txType, limit)
			if err != nil {
				return fmt.Errorf("failed to list transactions: %w", err)
			}

			shown := 0
			for i := range txs {
				tx := &txs[i]
				ok, err := matchesJQFilters(filters, tx)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
				shown++

				if jsonOutput {
					data, err := json.Marshal(tx)
					if err != nil {
						return fmt.Errorf("failed to marshal transaction: %w", err)
					}
					fmt.Println(string(data))
				} else {
					printTransaction(tx)
				}
			}

			if !jsonOutput {
				fmt.Printf("%d transaction(s)\n", shown)
			}
			return nil
		},
	}
}

func txTrackCommand() *cli.Command {
	return &cli.Command{
		Name:      "track",
		Usage:     "Record a dispatched transaction in a wallet's history",
		ArgsUsage: "WALLET_ADDRESS",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Value:   "http://localhost:8080",
				Usage:   "HTTP server URL",
				EnvVars: []string{"GOLDIUM_SERVER_URL"},
			},
			&cli.StringFlag{
				Name:     "type",
				Usage:    "Transaction type (swap, send, stake, unstake, mint)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "token",
				Usage:    "Token (SOL or GOLD)",
				Required: true,
			},
			&cli.Float64Flag{
				Name:     "amount",
				Usage:    "Amount in whole tokens",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "signature",
				Usage: "Ledger-assigned signature (omit to let the server assign a placeholder)",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output the tracked transaction as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("wallet address is required")
			}

			address := c.Args().Get(0)
			cl := client.NewClient(c.String("server"), nil, errorLogger())

			tx, err := cl.Track(context.Background(), address,
				c.String("type"), c.String("token"), c.Float64("amount"), c.String("signature"))
			if err != nil {
				return fmt.Errorf("failed to track transaction: %w", err)
			}

			if c.Bool("json") {
				data, err := json.MarshalIndent(tx, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal transaction: %w", err)
				}
				fmt.Println(string(data))
			} else {
				fmt.Printf("✓ Transaction tracked\n")
				printTransaction(tx)
			}
			return nil
		},
	}
}

func txUpdateStatusCommand() *cli.Command {
	return &cli.Command{
		Name:      "update-status",
		Usage:     "Move a pending transaction to its terminal status",
		ArgsUsage: "WALLET_ADDRESS SIGNATURE STATUS",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Value:   "http://localhost:8080",
				Usage:   "HTTP server URL",
				EnvVars: []string{"GOLDIUM_SERVER_URL"},
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 3 {
				return fmt.Errorf("wallet address, signature, and status are required (status: confirmed or failed)")
			}

			address := c.Args().Get(0)
			signature := c.Args().Get(1)
			status := c.Args().Get(2)

			cl := client.NewClient(c.String("server"), nil, errorLogger())
			if err := cl.UpdateStatus(context.Background(), address, signature, status); err != nil {
				return fmt.Errorf("failed to update status: %w", err)
			}

			fmt.Printf("✓ Transaction %s marked %s\n", signature, status)
			return nil
		},
	}
}

func txAwaitCommand() *cli.Command {
	return &cli.Command{
		Name:      "await",
		Usage:     "Block until a transaction event matching criteria arrives",
		ArgsUsage: "WALLET_ADDRESS",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Value:   "http://localhost:8080",
				Usage:   "HTTP server URL",
				EnvVars: []string{"GOLDIUM_SERVER_URL"},
			},
			&cli.StringFlag{
				Name:  "signature",
				Usage: "Filter by exact transaction signature",
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Filter by status (pending, confirmed, failed)",
			},
			&cli.StringSliceFlag{
				Name:    "must-jq",
				Usage:   "jq filter expression that must evaluate to true against the event (can be specified multiple times, all must match)",
				Aliases: []string{"jq"},
			},
			&cli.DurationFlag{
				Name:    "timeout",
				Aliases: []string{"t"},
				Value:   5 * time.Minute,
				Usage:   "How long to wait for the event",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output the event as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("wallet address is required")
			}

			address := c.Args().Get(0)
			signature := c.String("signature")
			status := c.String("status")
			jqExprs := c.StringSlice("must-jq")
			timeout := c.Duration("timeout")
			jsonOutput := c.Bool("json")

			if signature == "" && status == "" && len(jqExprs) == 0 {
				return fmt.Errorf("must specify at least one filter: --signature, --status, or --must-jq")
			}

			filters, err := compileJQFilters(jqExprs)
			if err != nil {
				return err
			}

			logger := errorLogger()
			cl := client.NewClient(c.String("server"), nil, logger)

			matcher := func(ev *client.TransactionEvent) bool {
				if signature != "" && ev.Signature != signature {
					return false
				}
				if status != "" && ev.Status != status {
					return false
				}
				ok, err := matchesJQFilters(filters, ev)
				if err != nil {
					logger.Debug("jq filter error", "error", err)
					return false
				}
				return ok
			}

			if !jsonOutput {
				fmt.Fprintf(os.Stderr, "Waiting for transaction event on wallet %s...\n", address)
				if signature != "" {
					fmt.Fprintf(os.Stderr, "  Signature: %s\n", signature)
				}
				if status != "" {
					fmt.Fprintf(os.Stderr, "  Status: %s\n", status)
				}
				for _, expr := range jqExprs {
					fmt.Fprintf(os.Stderr, "  jq Filter: %s\n", expr)
				}
				fmt.Fprintf(os.Stderr, "  Timeout: %v\n\n", timeout)
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			event, err := cl.Await(ctx, address, matcher)
			if err != nil {
				return fmt.Errorf("failed to await transaction event: %w", err)
			}

			if jsonOutput {
				data, err := json.MarshalIndent(event, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal event: %w", err)
				}
				fmt.Println(string(data))
			} else {
				fmt.Printf("✅ Event received\n")
				fmt.Printf("   Event: %s\n", event.Event)
				fmt.Printf("   Signature: %s\n", event.Signature)
				fmt.Printf("   Type: %s\n", event.Type)
				fmt.Printf("   Token: %s\n", event.Token)
				fmt.Printf("   Amount: %g\n", event.Amount)
				fmt.Printf("   Status: %s\n", event.Status)
			}
			return nil
		},
	}
}

// compileJQFilters parses and compiles the given jq expressions.
func compileJQFilters(exprs []string) ([]*gojq.Code, error) {
	compiled := make([]*gojq.Code, len(exprs))
	for i, expr := range exprs {
		query, err := gojq.Parse(expr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse jq filter %q: %w", expr, err)
		}
		compiled[i], err = gojq.Compile(query)
		if err != nil {
			return nil, fmt.Errorf("failed to compile jq filter %q: %w", expr, err)
		}
	}
	return compiled, nil
}

// matchesJQFilters round-trips v through JSON and requires every compiled
// filter to evaluate truthy against it.
func matchesJQFilters(filters []*gojq.Code, v interface{}) (bool, error) {
	if len(filters) == 0 {
		return true, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("failed to marshal value for jq: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return false, fmt.Errorf("failed to unmarshal value for jq: %w", err)
	}

	for _, code := range filters {
		iter := code.Run(doc)
		result, ok := iter.Next()
		if !ok {
			return false, nil
		}
		if err, isErr := result.(error); isErr {
			return false, err
		}
		if !isTruthy(result) {
			return false, nil
		}
	}
	return true, nil
}

// isTruthy checks if a jq result value is truthy.
// In jq, false and null are falsy, everything else is truthy.
func isTruthy(v interface{}) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	// Everything else (numbers, strings, objects, arrays) is truthy
	return true
}

func printTransaction(tx *client.Transaction) {
	fmt.Printf("  %s\n", tx.Signature)
	fmt.Printf("    Type:   %s\n", tx.Type)
	fmt.Printf("    Token:  %s\n", tx.Token)
	fmt.Printf("    Amount: %g\n", tx.Amount)
	fmt.Printf("    Status: %s\n", tx.Status)
	fmt.Printf("    Time:   %s\n", tx.Timestamp.Format(time.RFC3339))
	if tx.ContractAddress != "" {
		fmt.Printf("    Mint:   %s\n", tx.ContractAddress)
	}
}

// errorLogger returns a logger that only surfaces errors on stderr.
func errorLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}
