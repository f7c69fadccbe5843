package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/termfx/aliyun-mcp/internal/config"
	"github.com/termfx/aliyun-mcp/internal/logging"
	"github.com/termfx/aliyun-mcp/sls"
)

const version = "0.1.0"

// newBackend builds SLS clients for every command; tests replace it.
var newBackend sls.BackendFactory = sls.NewAliyunBackend

// exitError carries the process exit code for a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// rootOptions holds the state resolved by the root command before any
// subcommand runs.
type rootOptions struct {
	debug   bool
	envFile string
	noColor bool

	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	os.Exit(execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// execute runs the CLI and returns the process exit code.
func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		code := 1
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			code = exitErr.code
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return code
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "aliyun-mcp",
		Short:         "MCP server for querying Aliyun SLS logs",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Load environment variables from this file when it exists")
	rootCmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(newMCPCmd(opts))
	rootCmd.AddCommand(newQueryCmd(opts))
	rootCmd.AddCommand(newSelftestCmd(opts))
	rootCmd.AddCommand(newHistoryCmd(opts))

	return rootCmd
}

// load reads the .env file and environment, then builds the logger.
func (o *rootOptions) load(stderr io.Writer) error {
	if err := config.LoadDotEnv(o.envFile); err != nil {
		return fmt.Errorf("load %s: %w", o.envFile, err)
	}

	o.cfg = config.LoadConfig()

	level := logging.ParseLevel(o.cfg.LogLevel)
	if o.debug {
		level = slog.LevelDebug
	}
	o.logger = logging.New(level, stderr, o.cfg.LogFormat)

	if o.noColor {
		color.NoColor = true
	}

	return nil
}

// newQueryService wires the SLS client provider and service the same way
// the MCP server does.
func (o *rootOptions) newQueryService() (*sls.Service, error) {
	policy, err := sls.NewTargetPolicy(o.cfg.AllowedTargets)
	if err != nil {
		return nil, err
	}

	logger := o.logger.With("component", "sls")
	provider := sls.NewClientProvider(newBackend, sls.WithProviderLogger(logger))
	return sls.NewService(provider, sls.WithPolicy(policy), sls.WithLogger(logger)), nil
}

// usageArgs accepts between lo and hi positional arguments, reporting the
// usage line otherwise.
func usageArgs(lo, hi int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < lo || len(args) > hi {
			return fmt.Errorf("usage: %s", cmd.UseLine())
		}
		return nil
	}
}
