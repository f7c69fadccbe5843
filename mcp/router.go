package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/termfx/aliyun-mcp/internal/logging"
)

// RequestHandler processes a JSON-RPC request message and returns a response.
type RequestHandler func(ctx context.Context, msg RequestMessage) ResponseMessage

// NotificationHandler processes a JSON-RPC notification.
type NotificationHandler func(ctx context.Context, msg NotificationMessage) error

// Router maps method names to handlers. A handler that panics is answered
// with an internal error instead of taking the stdio loop down with it.
type Router struct {
	mu            sync.RWMutex
	requests      map[string]RequestHandler
	notifications map[string]NotificationHandler
	logger        *slog.Logger
}

// NewRouter creates an empty router. A nil logger discards output.
func NewRouter(logger *slog.Logger) *Router {
	return &Router{
		requests:      make(map[string]RequestHandler),
		notifications: make(map[string]NotificationHandler),
		logger:        logging.OrDiscard(logger),
	}
}

// RegisterRequest binds method to handler, replacing any earlier binding.
func (r *Router) RegisterRequest(method string, handler RequestHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[method] = handler
}

// RegisterNotification binds a notification method to handler.
func (r *Router) RegisterNotification(method string, handler NotificationHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications[method] = handler
}

// Methods lists the registered request methods in sorted order.
func (r *Router) Methods() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	methods := make([]string, 0, len(r.requests))
	for method := range r.requests {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return methods
}

// DispatchRequest validates msg and runs its handler.
func (r *Router) DispatchRequest(ctx context.Context, msg RequestMessage) (resp ResponseMessage) {
	if err := ensureVersion(msg.JSONRPC); err != nil {
		return ErrorResponse(msg.ID, InvalidRequest, err.Error())
	}

	r.mu.RLock()
	handler, ok := r.requests[msg.Method]
	r.mu.RUnlock()
	if !ok {
		r.logger.Debug("unknown method", "method", msg.Method)
		return ErrorResponse(msg.ID, MethodNotFound, fmt.Sprintf("Method not found: %s", msg.Method))
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("request handler panicked", "method", msg.Method, "panic", p)
			resp = ErrorResponse(msg.ID, InternalError, fmt.Sprintf("Internal error handling %s", msg.Method))
		}
	}()

	r.logger.Debug("dispatching request", "method", msg.Method)
	resp = handler(ctx, msg)
	if resp.JSONRPC == "" {
		resp.JSONRPC = JSONRPCVersion
	}
	return resp
}

// DispatchNotification validates msg and runs its handler. Unknown methods
// are reported as errors for the caller to log.
func (r *Router) DispatchNotification(ctx context.Context, msg NotificationMessage) (err error) {
	if err := ensureVersion(msg.JSONRPC); err != nil {
		return err
	}

	r.mu.RLock()
	handler, ok := r.notifications[msg.Method]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("notification handler not registered: %s", msg.Method)
	}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("notification handler %s panicked: %v", msg.Method, p)
		}
	}()

	return handler(ctx, msg)
}
