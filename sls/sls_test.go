package sls

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/termfx/aliyun-mcp/internal/config"
)

// mockBackend is a testify mock standing in for the SDK client.
type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) GetLogs(req GetLogsRequest) (any, error) {
	args := m.Called(req)
	return args.Get(0), args.Error(1)
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingFactory records how many backends were built and with which
// credentials.
type countingFactory struct {
	mu      sync.Mutex
	calls   int
	creds   []config.Credentials
	backend Backend
	err     error
}

func (f *countingFactory) Build(creds config.Credentials) (Backend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.creds = append(f.creds, creds)
	if f.err != nil {
		return nil, f.err
	}
	return f.backend, nil
}

func (f *countingFactory) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func staticCredentials() (config.Credentials, error) {
	return config.Credentials{
		AccessKeyID:     "LTAI5tExample",
		AccessKeySecret: "secret",
		Endpoint:        config.DefaultEndpoint,
		APIVersion:      config.DefaultAPIVersion,
	}, nil
}

func missingCredentials() (config.Credentials, error) {
	return config.Credentials{}, config.ErrMissingCredentials
}

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func countLines(buf *bytes.Buffer, needle string) int {
	return strings.Count(buf.String(), needle)
}

func int64Ptr(v int64) *int64 { return &v }

func boolPtr(v bool) *bool { return &v }
