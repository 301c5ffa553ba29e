package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/carebook"
	"github.com/hupe1980/carebook/mcpserver"
)

var mcpReadOnly bool

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the scheduling tools over MCP (stdio)",
	Long: `Starts a Model Context Protocol server on stdin/stdout exposing the
availability and appointment tools, so MCP clients can query and change the
schedule directly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger, err := newLogger(cfg, os.Stderr)
		if err != nil {
			return err
		}

		store, err := carebook.OpenSchedule(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		srv, err := mcpserver.New(store, func(o *mcpserver.Options) {
			o.Logger = logger
			o.ToolTimeout = cfg.ToolTimeout
			o.ReadOnly = mcpReadOnly
		})
		if err != nil {
			return err
		}

		logger.Info("mcp.start", "tools", srv.Tools(), "db_path", cfg.DBPath)
		return srv.ServeStdio()
	},
}

func init() {
	mcpCmd.Flags().BoolVar(&mcpReadOnly, "read-only", false, "Expose the availability tools only")
}
