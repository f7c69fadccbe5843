package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/termfx/aliyun-mcp/db"
	"github.com/termfx/aliyun-mcp/internal/config"
	"github.com/termfx/aliyun-mcp/models"
)

type historyOptions struct {
	dbURL   string
	limit   int
	project string
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	hopts := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent querySLSLogs calls recorded by the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd.Context(), opts, hopts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&hopts.dbURL, "db", "", "Query history database, overrides ALIYUN_MCP_DB")
	cmd.Flags().IntVar(&hopts.limit, "limit", db.DefaultHistoryLimit, "Maximum number of records to show")
	cmd.Flags().StringVar(&hopts.project, "project", "", "Only show queries against this project")

	return cmd
}

func runHistory(ctx context.Context, opts *rootOptions, hopts *historyOptions, out io.Writer) error {
	dsn := opts.cfg.DatabaseURL
	if hopts.dbURL != "" {
		dsn = hopts.dbURL
	}
	if dsn == "" {
		return errors.New("no history database configured, set " + config.EnvDatabaseURL + " or pass --db")
	}

	conn, err := db.Connect(dsn, opts.debug)
	if err != nil {
		return err
	}
	defer db.Close(conn)

	records, err := db.NewHistoryStore(conn).Recent(ctx, hopts.limit, hopts.project)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Fprintln(out, "No queries recorded")
		return nil
	}

	printHistory(out, records)
	return nil
}

func printHistory(out io.Writer, records []models.QueryRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, heading("TIME")+"\t"+heading("STATUS")+"\t"+heading("DURATION")+"\t"+heading("TARGET")+"\t"+heading("QUERY"))
	for _, r := range records {
		status := success(r.Status)
		if r.Status != models.StatusOK {
			status = failure(r.Status)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s/%s\t%s\n",
			r.CreatedAt.Local().Format(time.DateTime),
			status,
			time.Duration(r.DurationMS)*time.Millisecond,
			r.Project, r.Logstore,
			truncate(r.Query, 60))
		if r.ErrorMessage != "" {
			fmt.Fprintf(w, "\t\t\t\t%s\n", faint(truncate(r.ErrorMessage, 80)))
		}
	}
	w.Flush()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
