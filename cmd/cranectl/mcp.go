package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	crane "github.com/wagiedev/crane-service-go"
	cranemcp "github.com/wagiedev/crane-service-go/internal/mcp"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func newMCPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the worker as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a.serveMetrics(ctx)

			svc := crane.NewService(a.options...)
			if err := svc.Start(ctx); err != nil {
				return err
			}

			defer func() {
				if err := svc.Stop(context.WithoutCancel(ctx)); err != nil {
					a.log.Warn("Failed to stop worker", "error", err)
				}
			}()

			tools := cranemcp.NewServiceTools(a.log, version, svc, a.scanner)

			return tools.Run(ctx, &mcp.StdioTransport{})
		},
	}
}
