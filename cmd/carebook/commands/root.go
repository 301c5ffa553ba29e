// Package commands implements the carebook command line.
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/carebook/api"
	"github.com/hupe1980/carebook/config"
	"github.com/hupe1980/carebook/logging"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "carebook",
	Short: "Carebook - hospital appointment assistant",
	Long: `Carebook answers patients in natural language, looks up doctor availability
and books, cancels or reschedules appointments through a team of assistants.`,
	Version:       api.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML configuration file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(mcpCmd)
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// newLogger builds the process logger. MCP over stdio logs to stderr so the
// JSON-RPC stream stays clean.
func newLogger(cfg *config.Config, out io.Writer) (*logging.TurnLogger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	return logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    cfg.LogFormat,
		Output:    out,
		Component: "carebook",
	}), nil
}
