package api

import (
	"context"
	"sync"

	"github.com/diogo/gemmy/internal/models"
)

// MockCompleter is a Completer for tests. It answers from Answer/Err, or
// from CompleteFunc when set.
type MockCompleter struct {
	Answer       string
	Err          error
	Model        string
	CompleteFunc func(ctx context.Context, prompt string) (*models.Completion, error)

	// Gate, when non-nil, blocks every call until it is closed or receives.
	// Started receives the prompt once a call is blocked on Gate.
	Gate    chan struct{}
	Started chan string

	mu          sync.Mutex
	calls       int
	prompts     []string
	closeCalled bool
}

// Ensure MockCompleter implements Completer
var _ Completer = (*MockCompleter)(nil)

func (m *MockCompleter) Complete(ctx context.Context, prompt string) (*models.Completion, error) {
	m.mu.Lock()
	m.calls++
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.Gate != nil {
		if m.Started != nil {
			m.Started <- prompt
		}
		select {
		case <-m.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return &models.Completion{Text: m.Answer}, nil
}

func (m *MockCompleter) ModelName() string {
	if m.Model == "" {
		return models.DefaultModel.Name
	}
	return m.Model
}

func (m *MockCompleter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalled = true
	return nil
}

// Calls returns how many times Complete was invoked
func (m *MockCompleter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Prompts returns the prompts received, in order
func (m *MockCompleter) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// Closed reports whether Close was called
func (m *MockCompleter) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCalled
}
