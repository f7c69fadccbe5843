package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"github.com/termfx/aliyun-mcp/internal/config"
	"github.com/termfx/aliyun-mcp/mcp"
	"github.com/termfx/aliyun-mcp/mcp/tools"
)

// selftestTimeout bounds the whole exchange with the child server.
const selftestTimeout = 60 * time.Second

// serverCommand builds the child process that serves MCP on stdio. Tests
// replace it to run the server in-process through a helper binary.
var serverCommand = func(ctx context.Context, opts *rootOptions) (*exec.Cmd, error) {
	self, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locate executable: %w", err)
	}
	args := []string{"--env-file", opts.envFile, "mcp"}
	if opts.debug {
		args = append([]string{"--debug"}, args...)
	}
	return exec.CommandContext(ctx, self, args...), nil
}

func newSelftestCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "selftest <project> <logstore> <query> [limit]",
		Short: "Spawn the MCP server and run one querySLSLogs call through it",
		Args:  usageArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelftest(cmd.Context(), opts, cmd.OutOrStdout(), cmd.ErrOrStderr(), args)
		},
	}
}

func runSelftest(ctx context.Context, opts *rootOptions, out, stderr io.Writer, args []string) error {
	target, err := parseQueryTarget(args)
	if err != nil {
		return err
	}

	creds, err := config.LoadCredentials()
	if err != nil {
		return err
	}
	printTarget(out, "Running MCP selftest with parameters:", target, creds)

	ctx, cancel := context.WithTimeout(ctx, selftestTimeout)
	defer cancel()

	child, err := serverCommand(ctx, opts)
	if err != nil {
		return err
	}
	child.Stderr = stderr

	stdin, err := child.StdinPipe()
	if err != nil {
		return fmt.Errorf("open server stdin: %w", err)
	}
	stdout, err := child.StdoutPipe()
	if err != nil {
		return fmt.Errorf("open server stdout: %w", err)
	}
	if err := child.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	client := &selftestClient{enc: json.NewEncoder(stdin), dec: json.NewDecoder(bufio.NewReader(stdout))}
	text, callErr := client.run(target)

	// Closing stdin is the server's signal to shut down.
	stdin.Close()
	waitErr := child.Wait()

	if callErr != nil {
		fmt.Fprintln(out, failure("Selftest failed"))
		return &exitError{code: 1, err: callErr}
	}

	fmt.Fprintln(out, success("Selftest succeeded"))
	fmt.Fprintln(out, heading("Result:"))
	fmt.Fprintln(out, text)

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return &exitError{code: exitErr.ExitCode(), err: fmt.Errorf("server exited: %w", waitErr)}
	}
	if waitErr != nil {
		return fmt.Errorf("wait for server: %w", waitErr)
	}
	return nil
}

// selftestClient speaks just enough MCP to drive one tool call.
type selftestClient struct {
	enc    *json.Encoder
	dec    *json.Decoder
	nextID int
}

func (c *selftestClient) run(target queryTarget) (string, error) {
	if _, err := c.call("initialize", map[string]any{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "aliyun-mcp-selftest", "version": version},
	}); err != nil {
		return "", fmt.Errorf("initialize: %w", err)
	}

	notification, err := mcp.NewNotificationMessage("notifications/initialized", nil)
	if err != nil {
		return "", err
	}
	if err := c.enc.Encode(notification); err != nil {
		return "", fmt.Errorf("send initialized: %w", err)
	}

	result, err := c.call("tools/call", map[string]any{
		"name": tools.SLSQueryToolName,
		"arguments": map[string]any{
			"project":  target.project,
			"logstore": target.logstore,
			"query":    target.query,
			"limit":    target.limit,
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", tools.SLSQueryToolName, err)
	}

	var payload struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(result, &payload); err != nil {
		return "", fmt.Errorf("decode tool result: %w", err)
	}
	if len(payload.Content) == 0 {
		return "", errors.New("tool result has no content")
	}
	return payload.Content[0].Text, nil
}

// call sends one request and waits for the response with the same id.
func (c *selftestClient) call(method string, params any) (json.RawMessage, error) {
	c.nextID++
	req, err := mcp.NewRequestMessage(c.nextID, method, params)
	if err != nil {
		return nil, err
	}
	if err := c.enc.Encode(req); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	for {
		var resp struct {
			ID     json.RawMessage  `json:"id"`
			Result json.RawMessage  `json:"result"`
			Error  *mcp.ErrorObject `json:"error"`
		}
		if err := c.dec.Decode(&resp); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errors.New("server closed the connection")
			}
			return nil, fmt.Errorf("read response: %w", err)
		}
		if string(resp.ID) != fmt.Sprint(c.nextID) {
			continue
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("%s (code %d)", resp.Error.Message, resp.Error.Code)
		}
		return resp.Result, nil
	}
}
