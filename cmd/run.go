package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"cartrules/internal/app"
)

var (
	// runSessionID supplies a durable host session token.
	runSessionID string

	// runPort overrides server.port; negative keeps the configured port.
	runPort int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the cart rules agent",
	Long: `Starts the agent: it loads the shop's rules, runs a first reconciliation
pass and then reconciles whenever host pages report a cart change, the poll
interval elapses or (in file mode) a rule file changes.

The HTTP listener serves:
  POST /v1/signals        cart change signals from host pages
  GET  /v1/ws             refresh notifications and inbound signals
  POST /v1/reconcile      run a pass now
  POST /v1/rules/reload   reload rules and run a pass
  GET  /v1/status         agent state
  GET  /healthz           liveness
  GET  /metrics           Prometheus metrics

The agent stops on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runAgent,
}

func runAgent(cmd *cobra.Command, args []string) error {
	cfg := app.NewConfig(debug, configPath)
	cfg.SessionID = runSessionID
	cfg.Port = runPort

	application, err := app.NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return application.Run(ctx)
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runSessionID, "session-id", "", "Host session token (default: a new id per start)")
	runCmd.Flags().IntVar(&runPort, "port", -1, "Listen port (overrides server.port)")
}
