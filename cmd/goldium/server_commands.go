package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"
)

// healthReport mirrors the server's /health payload.
type healthReport struct {
	Status       string `json:"status"`
	ActiveWallet string `json:"activeWallet"`
	Streaming    bool   `json:"streaming"`
	Metrics      bool   `json:"metrics"`
}

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check server health and subsystem readiness",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Request timeout",
				Value: 5 * time.Second,
			},
		},
		Action: func(c *cli.Context) error {
			serverURL := c.String("server-url")
			if serverURL == "" {
				return fmt.Errorf("server-url is required (set SERVER_URL env var or use --server-url)")
			}

			httpClient := &http.Client{Timeout: c.Duration("timeout")}
			resp, err := httpClient.Get(serverURL + "/health")
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("server returned unhealthy status: %d", resp.StatusCode)
			}

			var report healthReport
			if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
				return fmt.Errorf("failed to decode health response: %w", err)
			}

			fmt.Printf("✓ Server is healthy\n")
			fmt.Printf("  URL:           %s\n", serverURL)
			fmt.Printf("  Active wallet: %s\n", orNone(report.ActiveWallet))
			fmt.Printf("  Streaming:     %s\n", readiness(report.Streaming))
			fmt.Printf("  Metrics:       %s\n", readiness(report.Metrics))
			return nil
		},
	}
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func readiness(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(c *cli.Context) error {
			fmt.Printf("goldium %s (commit %s, built %s)\n", version, commit, date)
			return nil
		},
	}
}
