// Package alert delivers trade and failure notifications to the operator.
package alert

import "context"

// Notifier delivers a single message to an external channel.
type Notifier interface {
	Send(ctx context.Context, message string) error
}

// NoOpNotifier discards every message. Used when no channel is configured.
type NoOpNotifier struct{}

// NewNoOpNotifier creates a notifier that does nothing.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

// Send discards the message.
func (n *NoOpNotifier) Send(ctx context.Context, message string) error {
	return nil
}
