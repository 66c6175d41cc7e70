package chathub

import "anonchat/backend/internal/models"

// Client is the delivery side of one connection. It abstracts the
// underlying transport so the registry can manage WebSocket clients and
// test doubles uniformly.
type Client interface {
	// Enqueue places one outbound frame on the client's write queue without
	// blocking. It returns false when the queue is full, which marks the
	// session unhealthy.
	Enqueue(frame models.OutFrame) bool

	// Close shuts down the client's connection. Idempotent.
	Close()
}
