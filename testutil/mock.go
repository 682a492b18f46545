package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/AiXpand/tsclient-sub000/message"
	"github.com/AiXpand/tsclient-sub000/transport"
)

// ErrNotStarted is returned by Inject before Start registered a sink
var ErrNotStarted = errors.New("mock transport not started")

// SentCommand is one command recorded by MockTransport
type SentCommand struct {
	Node    string
	Command *message.Command
}

// MockTransport is an in-memory transport. It is safe for concurrent use.
type MockTransport struct {
	mu   sync.Mutex
	sink transport.Sink
	sent []SentCommand

	// StartFunc and SendFunc override the default behavior when set
	StartFunc func(ctx context.Context) error
	SendFunc  func(ctx context.Context, node string, cmd *message.Command) error

	StartCalls int
}

// NewMockTransport creates an idle mock transport
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// Start records sink as the event receiver
func (m *MockTransport) Start(ctx context.Context, sink transport.Sink) error {
	m.mu.Lock()
	m.StartCalls++
	start := m.StartFunc
	m.mu.Unlock()

	if start != nil {
		if err := start(ctx); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sink = sink
	return nil
}

// Send records the command. A SendFunc error is returned and nothing is recorded.
func (m *MockTransport) Send(ctx context.Context, node string, cmd *message.Command) error {
	m.mu.Lock()
	send := m.SendFunc
	m.mu.Unlock()

	if send != nil {
		if err := send(ctx, node, cmd); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentCommand{Node: node, Command: cmd})
	return nil
}

// Inject delivers events to the sink on the calling goroutine, in order
func (m *MockTransport) Inject(ctx context.Context, events ...message.Event) error {
	m.mu.Lock()
	sink := m.sink
	m.mu.Unlock()

	if sink == nil {
		return ErrNotStarted
	}
	for _, ev := range events {
		sink(ctx, ev)
	}
	return nil
}

// Sent returns a copy of the recorded commands
func (m *MockTransport) Sent() []SentCommand {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentCommand, len(m.sent))
	copy(out, m.sent)
	return out
}

// Last returns the most recent command, or false when nothing was sent
func (m *MockTransport) Last() (SentCommand, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return SentCommand{}, false
	}
	return m.sent[len(m.sent)-1], true
}

// Actions returns the actions of the recorded commands in send order
func (m *MockTransport) Actions() []message.Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]message.Action, 0, len(m.sent))
	for _, s := range m.sent {
		out = append(out, s.Command.Action)
	}
	return out
}

// Reset forgets the recorded commands
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}
