package server

import (
	"time"

	"github.com/deckforge/deckforge/internal/core/ai"
	"github.com/deckforge/deckforge/internal/core/protocol"
)

var _ ClientIO = (*AgentClient)(nil)

// AgentClient is a synthetic player living inside the server process. It is
// listed in the lobby like any other user and can be challenged directly or
// drafted as a matchmaking filler. It needs no outbound messages: its
// strategy reads the match store directly when the session schedules it.
type AgentClient struct {
	id       int64
	name     string
	strategy ai.Strategy
	delay    time.Duration
}

func NewAgentClient(id int64, name string, strategy ai.Strategy, delay time.Duration) *AgentClient {
	return &AgentClient{
		id:       id,
		name:     name,
		strategy: strategy,
		delay:    delay,
	}
}

func (a *AgentClient) ID() int64 { return a.id }

func (a *AgentClient) Name() string { return a.name }

func (a *AgentClient) SetName(name string) { a.name = name }

func (a *AgentClient) Status() Status { return StatusOnline }

func (a *AgentClient) Strategy() ai.Strategy { return a.strategy }

func (a *AgentClient) Delay() time.Duration { return a.delay }

// Send drops the message: the agent observes state through the store.
func (a *AgentClient) Send(protocol.Message) error { return nil }

func (a *AgentClient) Close() error { return nil }
