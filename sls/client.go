package sls

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/termfx/aliyun-mcp/internal/config"
	"github.com/termfx/aliyun-mcp/internal/logging"
	"github.com/termfx/aliyun-mcp/mcp/types"
)

// RefreshInterval is the maximum age of a client before it is recreated.
const RefreshInterval = time.Hour

// CredentialSource reads credentials for a new client.
type CredentialSource func() (config.Credentials, error)

// clientHandle is the single live backend connection and its creation time.
type clientHandle struct {
	backend   Backend
	createdAt time.Time
}

// ClientProvider hands out a shared Backend, creating it on first use and
// replacing it once it is older than the refresh interval. A handle is never
// mutated; a stale one is abandoned and a new one built in its place.
type ClientProvider struct {
	mu       sync.Mutex
	handle   *clientHandle
	factory  BackendFactory
	source   CredentialSource
	now      func() time.Time
	interval time.Duration
	logger   *slog.Logger
}

// ProviderOption customizes a ClientProvider.
type ProviderOption func(*ClientProvider)

// WithCredentialSource overrides where credentials are read from.
func WithCredentialSource(source CredentialSource) ProviderOption {
	return func(p *ClientProvider) { p.source = source }
}

// WithClock overrides the provider's time source.
func WithClock(now func() time.Time) ProviderOption {
	return func(p *ClientProvider) { p.now = now }
}

// WithProviderLogger sets the diagnostics logger.
func WithProviderLogger(logger *slog.Logger) ProviderOption {
	return func(p *ClientProvider) { p.logger = logger }
}

// NewClientProvider returns a provider building backends with factory.
func NewClientProvider(factory BackendFactory, opts ...ProviderOption) *ClientProvider {
	p := &ClientProvider{
		factory:  factory,
		source:   config.LoadCredentials,
		now:      time.Now,
		interval: RefreshInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.OrDiscard(p.logger)
	return p
}

// Acquire returns the current backend, building a new one when none exists
// or the current one has gone stale.
func (p *ClientProvider) Acquire() (Backend, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle != nil && !p.staleLocked() {
		return p.handle.backend, nil
	}

	creds, err := p.source()
	if err != nil {
		if errors.Is(err, config.ErrMissingCredentials) {
			return nil, types.NewMCPError(types.InvalidRequest,
				"Missing Aliyun credentials. Please set ALIYUN_ACCESS_KEY_ID and ALIYUN_ACCESS_KEY_SECRET environment variables.", nil)
		}
		return nil, types.WrapError(types.InvalidRequest, "Failed to load Aliyun credentials", err)
	}

	p.logger.Info("initializing SLS client", "credentials", creds)

	backend, err := p.factory(creds)
	if err != nil {
		return nil, err
	}

	p.handle = &clientHandle{backend: backend, createdAt: p.now()}
	p.logger.Info("SLS client initialized successfully")

	return backend, nil
}

// Invalidate drops the current handle so the next Acquire builds a new one.
func (p *ClientProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handle = nil
}

// CreatedAt reports when the live handle was built.
func (p *ClientProvider) CreatedAt() (time.Time, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle == nil {
		return time.Time{}, false
	}
	return p.handle.createdAt, true
}

func (p *ClientProvider) staleLocked() bool {
	return p.now().Sub(p.handle.createdAt) > p.interval
}
