// Package events publishes crawl lifecycle notifications.
package events

import "context"

// Publisher pushes crawl events to an external system.
type Publisher interface {
	Publish(ctx context.Context, payload any) (string, error)
	Close() error
}

// Noop discards all events.
type Noop struct{}

// Publish does nothing.
func (Noop) Publish(context.Context, any) (string, error) { return "", nil }

// Close does nothing.
func (Noop) Close() error { return nil }
