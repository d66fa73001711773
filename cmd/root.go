package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"cartrules/internal/config"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeConfigError indicates config.yaml could not be read, decoded or validated.
	ExitCodeConfigError = 2
)

var (
	// configPath is the directory holding config.yaml.
	configPath string

	// debug enables debug logging regardless of log.level.
	debug bool
)

// rootCmd represents the base command for the cartrules application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "cartrules",
	Short: "Keep storefront carts in line with threshold rules",
	Long: `cartrules watches a shopper's cart and applies the shop's cart rules:
when the cart total enters a rule's threshold band the rule's products are
added, and when it leaves the band again products the agent added are removed.

Host pages report cart changes over HTTP or a WebSocket; the agent debounces
them into reconciliation passes and tells the pages to refresh afterwards.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "cartrules version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var validation config.ValidationErrors
	if errors.As(err, &validation) {
		return ExitCodeConfigError
	}

	var cfgErr config.ConfigurationError
	if errors.As(err, &cfgErr) {
		return ExitCodeConfigError
	}

	return ExitCodeError
}

func init() {
	rootCmd.AddCommand(newVersionCmd())

	rootCmd.PersistentFlags().StringVar(&configPath, "config-path", config.GetDefaultConfigPathOrPanic(), "Configuration directory")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
}
