package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/getmockd/intercept/pkg/logging"
)

var (
	// Persistent flags available to all subcommands
	jsonOutput bool
	logLevel   string
	logFormat  string

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mockd-intercept",
	Short: "Check and explain HTTP mock fixtures",
	Long: `mockd-intercept works with the fixture files that tests load into an
interception pool. It validates fixtures, explains which mock a request
would hit, and seeds fixtures from OpenAPI documents.`,
	SilenceUsage:  true,
	SilenceErrors: true, // Main reports errors
}

// Main runs the command line in os.Args and returns the exit status.
func Main() int {
	return run(os.Args[1:])
}

// Execute runs the command line and exits the process.
func Execute() {
	os.Exit(Main())
}

func run(args []string) int {
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
	return 1
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output command results in JSON format")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
}

// newLogger builds the logger for a command from the persistent flags.
// Logs always go to stderr so they never mix with command output.
func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(logFormat)
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Config{
		Level:  level,
		Format: format,
		Output: cmd.ErrOrStderr(),
	}), nil
}
