// reasonkit: structured reasoning workflows over MCP
//
// An MCP server that gives an AI assistant session-based reasoning tools
// (planning, tree of thoughts, sequential thinking, verbalized sampling,
// counterfactual analysis, prompt refinement), conversation memory, and
// thin Slack, JIRA and Confluence wrappers.
//
// Usage:
//
//	reasonkit serve      # Start MCP server (stdio transport)
//	reasonkit version    # Print the version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/HendryAvila/reasonkit/internal/config"
	"github.com/HendryAvila/reasonkit/internal/logging"
	rkserver "github.com/HendryAvila/reasonkit/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		verbose bool
		cfg     *config.AppConfig
	)

	root := &cobra.Command{
		Use:           "reasonkit",
		Short:         "Structured reasoning workflows over MCP",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			config.LoadEnvFiles()
			dir := os.Getenv("LOGS_FOLDER")
			if dir == "" {
				dir = logging.DefaultDir()
			}
			if err := logging.Init(verbose, dir); err != nil {
				return fmt.Errorf("initializing logging: %w", err)
			}
			var err error
			if cfg, err = config.Load(); err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg)
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "reasonkit v%s\n", rkserver.Version)
		},
	})
	return root
}

func serve(ctx context.Context, cfg *config.AppConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s, cleanup, err := rkserver.New(cfg)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Graceful shutdown on interrupt.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", rkserver.Version).Msg("reasonkit serving on stdio")
	err = server.NewStdioServer(s).Listen(ctx, os.Stdin, os.Stdout)
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
