package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/termfx/aliyun-mcp/db"
	"github.com/termfx/aliyun-mcp/internal/logging"
	"github.com/termfx/aliyun-mcp/mcp/tools"
	"github.com/termfx/aliyun-mcp/models"
	"github.com/termfx/aliyun-mcp/sls"
)

// StdioServer handles MCP communication over stdio
type StdioServer struct {
	config Config
	logger *slog.Logger

	reader  io.Reader
	writer  *bufio.Writer
	writeMu sync.Mutex

	router   *Router
	registry *tools.Registry

	// Query history, nil when persistence is disabled
	history *db.HistoryStore
	session *models.Session

	closeOnce sync.Once
	closeErr  error
}

// inbound is one decoded frame, or the syntax error that replaced it.
type inbound struct {
	raw json.RawMessage
	err error
}

// NewStdioServer creates a new MCP server that communicates over stdio
func NewStdioServer(config Config) (*StdioServer, error) {
	logger := logging.OrDiscard(config.Logger)

	reader := config.Stdin
	if reader == nil {
		reader = os.Stdin
	}
	writer := config.Stdout
	if writer == nil {
		writer = os.Stdout
	}

	server := &StdioServer{
		config: config,
		logger: logger.With("component", "mcp"),
		reader: reader,
		writer: bufio.NewWriter(writer),
	}

	querier := config.Querier
	if querier == nil {
		service, err := newQueryService(config, logger)
		if err != nil {
			return nil, err
		}
		querier = service
	}

	// Initialize database if URL provided
	if config.DatabaseURL != "" {
		database, err := db.Connect(config.DatabaseURL, config.Debug)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		server.history = db.NewHistoryStore(database)

		session, err := server.history.StartSession(context.Background())
		if err != nil {
			db.Close(database)
			return nil, err
		}
		server.session = session
		server.logger.Debug("session created", "session", session.ID)

		querier = newRecordingQuerier(querier, server.history, session.ID, logger.With("component", "history"))
	}

	server.registry = tools.NewDefaultRegistry(querier, tools.WithToolLogger(logger.With("component", "tool")))
	server.router = server.newRouter()

	return server, nil
}

func newQueryService(config Config, logger *slog.Logger) (*sls.Service, error) {
	policy, err := sls.NewTargetPolicy(config.AllowedTargets)
	if err != nil {
		return nil, err
	}

	factory := config.BackendFactory
	if factory == nil {
		factory = sls.NewAliyunBackend
	}

	slsLogger := logger.With("component", "sls")
	provider := sls.NewClientProvider(factory, sls.WithProviderLogger(slsLogger))
	return sls.NewService(provider, sls.WithPolicy(policy), sls.WithLogger(slsLogger)), nil
}

func (s *StdioServer) newRouter() *Router {
	router := NewRouter(s.logger)

	router.RegisterRequest("initialize", s.handleInitialize)
	router.RegisterRequest("ping", s.handlePing)
	router.RegisterRequest("tools/list", s.handleListTools)
	router.RegisterRequest("tools/call", s.handleCallTool)
	router.RegisterRequest("resources/list", s.handleListResources)
	router.RegisterRequest("resources/read", s.handleReadResource)

	router.RegisterNotification("notifications/initialized", s.handleInitialized)
	router.RegisterNotification("initialized", s.handleInitialized)

	return router
}

// Start processes JSON-RPC messages from stdin until EOF or until ctx is
// cancelled. Messages are handled one at a time.
func (s *StdioServer) Start(ctx context.Context) error {
	s.logger.Info("MCP server started", "session", s.SessionID())

	messages := make(chan inbound)
	go s.readLoop(ctx, messages)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("context cancelled, shutting down")
			s.closeReader()
			return nil
		case msg, ok := <-messages:
			if !ok {
				s.logger.Info("EOF received, shutting down gracefully")
				return nil
			}
			if msg.err != nil {
				s.logger.Debug("parse error", "error", msg.err)
				s.sendResponse(ErrorResponse(nil, ParseError, msg.err.Error()))
				continue
			}
			s.handleMessage(ctx, msg.raw)
		}
	}
}

// readLoop decodes frames from the input stream. Malformed input produces a
// syntax error item and decoding resumes on the next line.
func (s *StdioServer) readLoop(ctx context.Context, out chan<- inbound) {
	defer close(out)

	// Use JSON decoder for streaming - handles multi-line JSON properly
	decoder := json.NewDecoder(s.reader)

	for {
		var raw json.RawMessage
		err := decoder.Decode(&raw)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return
		}

		var item inbound
		if err != nil {
			var syntaxErr *json.SyntaxError
			if !errors.As(err, &syntaxErr) {
				if ctx.Err() == nil {
					s.logger.Error("failed to read input", "error", err)
				}
				return
			}
			item.err = fmt.Errorf("JSON syntax error at position %d: %w", syntaxErr.Offset, err)
			decoder = resync(decoder, s.reader)
		} else {
			item.raw = raw
		}

		select {
		case out <- item:
		case <-ctx.Done():
			return
		}
	}
}

// closeReader unblocks readLoop after cancellation. Readers that cannot be
// closed leave the goroutine parked in Read until input arrives or the
// process exits.
func (s *StdioServer) closeReader() {
	if closer, ok := s.reader.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			s.logger.Debug("failed to close input", "error", err)
		}
	}
}

// resync discards the rest of the offending line and returns a decoder that
// continues with whatever follows it.
func resync(decoder *json.Decoder, r io.Reader) *json.Decoder {
	rest, _ := io.ReadAll(decoder.Buffered())
	rest = bytes.TrimLeft(rest, " \t\r\n")
	if i := bytes.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[i+1:]
	} else {
		rest = nil
	}
	return json.NewDecoder(io.MultiReader(bytes.NewReader(rest), r))
}

// handleMessage classifies a frame and dispatches it through the router.
func (s *StdioServer) handleMessage(ctx context.Context, raw json.RawMessage) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.sendResponse(ErrorResponse(nil, InvalidRequest, "Invalid Request"))
		return
	}

	if env.isNotification() {
		if env.Method == "" {
			s.logger.Debug("ignoring message without id or method")
			return
		}
		notification := Notification{JSONRPC: env.JSONRPC, Method: env.Method, Params: env.Params}
		if err := s.router.DispatchNotification(ctx, notification); err != nil {
			s.logger.Debug("notification not handled", "method", env.Method, "error", err)
		}
		return
	}

	if env.Method == "" {
		s.sendResponse(ErrorResponse(env.ID, InvalidRequest, "Invalid Request: missing method"))
		return
	}

	s.logger.Debug("received request", "method", env.Method, "id", string(env.ID))

	req := Request{JSONRPC: env.JSONRPC, ID: env.ID, Method: env.Method, Params: env.Params}
	s.sendResponse(s.router.DispatchRequest(ctx, req))
}

// sendResponse writes a response to stdout
func (s *StdioServer) sendResponse(resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("failed to marshal response", "error", err)
		data, _ = json.Marshal(ErrorResponse(resp.ID, InternalError, "failed to encode response"))
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, err := fmt.Fprintf(s.writer, "%s\n", data); err != nil {
		s.logger.Error("failed to write response", "error", err)
		return
	}
	if err := s.writer.Flush(); err != nil {
		s.logger.Error("failed to flush response", "error", err)
	}
}

// SessionID returns the persisted session id, or "" without a database.
func (s *StdioServer) SessionID() string {
	if s.session == nil {
		return ""
	}
	return s.session.ID
}

// Close ends the session and releases the database.
func (s *StdioServer) Close() error {
	s.closeOnce.Do(func() {
		if s.history == nil {
			return
		}
		if s.session != nil {
			if err := s.history.EndSession(context.Background(), s.session.ID); err != nil {
				s.logger.Error("failed to end session", "session", s.session.ID, "error", err)
			}
		}
		s.closeErr = db.Close(s.history.DB())
	})
	return s.closeErr
}
