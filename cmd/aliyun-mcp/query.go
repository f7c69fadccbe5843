package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/termfx/aliyun-mcp/internal/config"
	"github.com/termfx/aliyun-mcp/sls"
)

// defaultQueryLimit is the page size used by the direct query command.
const defaultQueryLimit = 10

var (
	heading = color.New(color.Bold).SprintFunc()
	success = color.New(color.FgGreen).SprintFunc()
	failure = color.New(color.FgRed).SprintFunc()
	faint   = color.New(color.FgCyan).SprintFunc()
)

func newQueryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query <project> <logstore> <query> [limit]",
		Short: "Run one SLS query directly, bypassing the MCP protocol",
		Args:  usageArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd.Context(), opts, cmd.OutOrStdout(), args)
		},
	}
}

// queryTarget is the positional form shared by query and selftest.
type queryTarget struct {
	project  string
	logstore string
	query    string
	limit    int64
}

func parseQueryTarget(args []string) (queryTarget, error) {
	target := queryTarget{
		project:  args[0],
		logstore: args[1],
		query:    args[2],
		limit:    defaultQueryLimit,
	}
	if len(args) > 3 {
		limit, err := strconv.ParseInt(args[3], 10, 64)
		if err != nil {
			return queryTarget{}, fmt.Errorf("invalid limit %q: %w", args[3], err)
		}
		target.limit = limit
	}
	return target, nil
}

func runQuery(ctx context.Context, opts *rootOptions, out io.Writer, args []string) error {
	target, err := parseQueryTarget(args)
	if err != nil {
		return err
	}

	creds, err := config.LoadCredentials()
	if err != nil {
		return err
	}

	printTarget(out, "Testing SLS query with parameters:", target, creds)

	service, err := opts.newQueryService()
	if err != nil {
		return err
	}

	result, err := service.QueryLogs(ctx, sls.QueryParams{
		Project:  target.project,
		Logstore: target.logstore,
		Query:    target.query,
		Limit:    &target.limit,
	})
	if err != nil {
		fmt.Fprintln(out, failure("Query failed"))
		return err
	}

	pretty, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	fmt.Fprintln(out, success("Query succeeded"))
	fmt.Fprintln(out, heading("Result:"))
	fmt.Fprintln(out, string(pretty))
	return nil
}

func printTarget(out io.Writer, title string, target queryTarget, creds config.Credentials) {
	fmt.Fprintln(out, heading(title))
	fmt.Fprintf(out, "  %s %s\n", faint("Project:"), target.project)
	fmt.Fprintf(out, "  %s %s\n", faint("Logstore:"), target.logstore)
	fmt.Fprintf(out, "  %s %s\n", faint("Query:"), target.query)
	fmt.Fprintf(out, "  %s %d\n", faint("Limit:"), target.limit)
	fmt.Fprintf(out, "  %s %s\n", faint("Endpoint:"), creds.Endpoint)
	fmt.Fprintf(out, "  %s %s\n", faint("Access Key ID:"), config.KeyPrefix(creds.AccessKeyID))
}
