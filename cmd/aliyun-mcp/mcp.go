package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/termfx/aliyun-mcp/mcp"
)

func newMCPCmd(opts *rootOptions) *cobra.Command {
	var dbURL string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP protocol server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMCPServer(cmd.Context(), opts, dbURL, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&dbURL, "db", "", "Query history database (file path or libsql URL), overrides ALIYUN_MCP_DB")

	return cmd
}

func runMCPServer(ctx context.Context, opts *rootOptions, dbURL string, stdin io.Reader, stdout io.Writer) error {
	config := mcp.DefaultConfig()
	config.DatabaseURL = opts.cfg.DatabaseURL
	if dbURL != "" {
		config.DatabaseURL = dbURL
	}
	config.AllowedTargets = opts.cfg.AllowedTargets
	config.BackendFactory = newBackend
	config.Stdin = stdin
	config.Stdout = stdout
	config.Logger = opts.logger
	config.Debug = opts.debug

	opts.logger.Info("starting Aliyun SLS MCP server",
		"version", version,
		"history", config.DatabaseURL != "",
		"allowed_targets", len(config.AllowedTargets))

	server, err := mcp.NewStdioServer(config)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer func() {
		if err := server.Close(); err != nil {
			opts.logger.Error("failed to close server", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Start(ctx)
}
