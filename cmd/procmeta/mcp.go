package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/procmeta/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose the catalog to MCP clients",
	Long:  `Starts a read-only MCP server over the configured catalog, on stdio by default or SSE with --sse.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, closer, err := openCatalog(cfg.Server)
		if err != nil {
			return err
		}
		defer closer.Close()

		srv := mcp.NewServer(catalog, mcp.WithLogger(logger))

		useSSE, _ := cmd.Flags().GetBool("sse")
		if !useSSE {
			return srv.ServeStdio()
		}
		port, _ := cmd.Flags().GetInt("port")
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.ServeSSE(ctx, fmt.Sprintf(":%d", port), fmt.Sprintf("http://localhost:%d", port))
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().Bool("sse", false, "Serve over SSE instead of stdio")
	mcpCmd.Flags().Int("port", 8081, "SSE port")
}
