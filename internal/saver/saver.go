// Package saver provides persistence strategies for fetched responses.
package saver

import (
	"context"
	"sync"

	"github.com/frontier-crawler/frontier/internal/crawl"
)

// Null discards every response. Useful when a crawl only exists to
// discover item IDs.
type Null struct{}

// Save does nothing.
func (Null) Save(context.Context, crawl.Item, crawl.Response) error { return nil }

// Close does nothing.
func (Null) Close() error { return nil }

// Memory captures saved responses for inspection in tests.
type Memory struct {
	mu    sync.RWMutex
	saved map[crawl.Item][]byte
}

// NewMemory creates an empty Memory saver.
func NewMemory() *Memory {
	return &Memory{saved: make(map[crawl.Item][]byte)}
}

// Save records the response body under the item.
func (m *Memory) Save(_ context.Context, item crawl.Item, resp crawl.Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[item] = append([]byte(nil), resp.Body...)
	return nil
}

// Saved returns a copy of everything saved so far.
func (m *Memory) Saved() map[crawl.Item][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[crawl.Item][]byte, len(m.saved))
	for item, body := range m.saved {
		out[item] = body
	}
	return out
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
