package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"cartrules/internal/config"
	"cartrules/internal/formatting"
	"cartrules/internal/server"
)

var (
	statusOutputFormat string
	statusTemplate     string
	statusAgentURL     string
	statusTimeout      time.Duration
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of a running agent",
	Long: `Queries a running agent's /v1/status endpoint and shows the loaded rules,
the session, fired rules, tracked products and the scheduler state.

Without --agent-url the address is taken from server.host and server.port in
config.yaml.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusOutputFormat, "output", "o", "table", "Output format (table, json, yaml, template)")
	statusCmd.Flags().StringVar(&statusTemplate, "template", "", "Go template for -o template (sprig functions available)")
	statusCmd.Flags().StringVar(&statusAgentURL, "agent-url", "", "Base URL of the running agent")
	statusCmd.Flags().DurationVar(&statusTimeout, "timeout", 5*time.Second, "Request timeout")
}

func runStatus(cmd *cobra.Command, args []string) error {
	formatter, err := formatting.NewFormatter(formatting.Options{
		Format:   formatting.OutputFormat(statusOutputFormat),
		Template: statusTemplate,
		Output:   cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	base := statusAgentURL
	if base == "" {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		base = agentURL(cfg.Server)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	status, err := fetchStatus(ctx, base, statusTimeout)
	if err != nil {
		return err
	}
	return formatter.FormatStatus(status)
}

// agentURL builds the agent base URL from the listener config.
func agentURL(s config.ServerConfig) string {
	host := s.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(s.Port))
}

func fetchStatus(ctx context.Context, base string, timeout time.Duration) (server.StatusResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := strings.TrimRight(base, "/") + "/v1/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return server.StatusResponse{}, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return server.StatusResponse{}, fmt.Errorf("agent not reachable at %s (is 'cartrules run' running?): %w", base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return server.StatusResponse{}, fmt.Errorf("agent returned %s", resp.Status)
	}

	var status server.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return server.StatusResponse{}, fmt.Errorf("failed to decode status: %w", err)
	}
	return status, nil
}
