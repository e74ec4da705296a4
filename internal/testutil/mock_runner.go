package testutil

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// CallRecord records a single runner invocation.
type CallRecord struct {
	Dir       string
	Args      []string
	Timestamp time.Time
	Err       error
}

// Command returns the invocation as a single space-joined string.
func (c CallRecord) Command() string {
	return strings.Join(c.Args, " ")
}

type mockResponse struct {
	output []byte
	err    error
	delay  time.Duration
}

// MockRunnerBuilder provides a fluent API for scripting command responses.
type MockRunnerBuilder struct {
	responses []mockResponse
	t         *testing.T
}

// NewMockRunnerBuilder creates a builder for a scripted command runner.
func NewMockRunnerBuilder(t *testing.T) *MockRunnerBuilder {
	t.Helper()
	return &MockRunnerBuilder{t: t}
}

// WithOutput queues a successful response.
func (b *MockRunnerBuilder) WithOutput(output string) *MockRunnerBuilder {
	b.responses = append(b.responses, mockResponse{output: []byte(output)})
	return b
}

// WithError queues a failing response.
func (b *MockRunnerBuilder) WithError(output string, err error) *MockRunnerBuilder {
	b.responses = append(b.responses, mockResponse{output: []byte(output), err: err})
	return b
}

// WithDelay delays the most recently queued response. The delay honours
// context cancellation.
func (b *MockRunnerBuilder) WithDelay(d time.Duration) *MockRunnerBuilder {
	if len(b.responses) > 0 {
		b.responses[len(b.responses)-1].delay = d
	}
	return b
}

// Build returns the configured MockRunner.
func (b *MockRunnerBuilder) Build() *MockRunner {
	return &MockRunner{responses: b.responses}
}

// MockRunner replays queued responses in order; once exhausted every call
// succeeds with empty output.
type MockRunner struct {
	mu        sync.Mutex
	responses []mockResponse
	next      int
	calls     []CallRecord
}

// Run records the call and returns the next queued response.
func (m *MockRunner) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	m.mu.Lock()
	var resp mockResponse
	if m.next < len(m.responses) {
		resp = m.responses[m.next]
		m.next++
	}
	m.mu.Unlock()

	if resp.delay > 0 {
		select {
		case <-time.After(resp.delay):
		case <-ctx.Done():
			resp.err = ctx.Err()
		}
	}

	m.mu.Lock()
	m.calls = append(m.calls, CallRecord{
		Dir:       dir,
		Args:      append([]string(nil), args...),
		Timestamp: time.Now(),
		Err:       resp.err,
	})
	m.mu.Unlock()

	return resp.output, resp.err
}

// Calls returns a copy of the recorded calls.
func (m *MockRunner) Calls() []CallRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]CallRecord, len(m.calls))
	copy(result, m.calls)
	return result
}

// AssertCalled verifies that some call's command line contains substr.
func (m *MockRunner) AssertCalled(t *testing.T, substr string) {
	t.Helper()

	calls := m.Calls()
	for _, call := range calls {
		if strings.Contains(call.Command(), substr) {
			return
		}
	}
	t.Errorf("expected a call containing %q, but was not found in %d calls", substr, len(calls))
}

// AssertCallCount verifies the number of calls made.
func (m *MockRunner) AssertCallCount(t *testing.T, expected int) {
	t.Helper()

	if got := len(m.Calls()); got != expected {
		t.Errorf("expected %d calls, got %d", expected, got)
	}
}
