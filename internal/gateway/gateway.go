package gateway

import (
	"context"

	"github.com/mohamedsaligh/mcp-server-client/internal/agent"
)

// Messenger defines the interface for communication gateways.
type Messenger interface {
	// Start begins the message listening loop and returns when ctx is done.
	Start(ctx context.Context) error
	// Send sends a message to a specific chat
	Send(chatID string, text string) error
	// Stop gracefully shuts down the gateway
	Stop() error
}

// Runner starts a pipeline run. *agent.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, req agent.Request) <-chan agent.Event
}
