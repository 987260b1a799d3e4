// Package crawl defines core types shared across subsystems.
package crawl

import (
	"net/http"
	"time"
)

// Item is an opaque identifier for one crawlable unit of work, typically
// a URL or a content ID. Items are compared by exact value; the core
// performs no normalization.
type Item = string

// Set is a value set of items. The zero value is not usable; construct
// sets with NewSet. Sets handed across component boundaries are copies,
// never live views of internal state.
type Set map[Item]struct{}

// NewSet builds a Set from the given items.
func NewSet(items ...Item) Set {
	s := make(Set, len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

// Add inserts item into the set.
func (s Set) Add(item Item) {
	s[item] = struct{}{}
}

// Contains reports whether item is in the set.
func (s Set) Contains(item Item) bool {
	_, ok := s[item]
	return ok
}

// Len returns the number of items in the set.
func (s Set) Len() int {
	return len(s)
}

// Copy returns an independent copy of the set.
func (s Set) Copy() Set {
	out := make(Set, len(s))
	for item := range s {
		out[item] = struct{}{}
	}
	return out
}

// Union adds every item of other into s.
func (s Set) Union(other Set) {
	for item := range other {
		s[item] = struct{}{}
	}
}

// Diff returns the items of s that are not in other.
func (s Set) Diff(other Set) Set {
	out := make(Set)
	for item := range s {
		if !other.Contains(item) {
			out[item] = struct{}{}
		}
	}
	return out
}

// SubsetOf reports whether every item of s is in other.
func (s Set) SubsetOf(other Set) bool {
	for item := range s {
		if !other.Contains(item) {
			return false
		}
	}
	return true
}

// Slice returns the items in unspecified order.
func (s Set) Slice() []Item {
	out := make([]Item, 0, len(s))
	for item := range s {
		out = append(out, item)
	}
	return out
}

// Chunks splits the set into slices of at most n items each. Used to
// respect backend limits on batch operation size.
func (s Set) Chunks(n int) [][]Item {
	if n <= 0 {
		n = len(s)
	}
	var chunks [][]Item
	chunk := make([]Item, 0, n)
	for item := range s {
		chunk = append(chunk, item)
		if len(chunk) == n {
			chunks = append(chunks, chunk)
			chunk = make([]Item, 0, n)
		}
	}
	if len(chunk) > 0 {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// Response is the result of downloading one item.
type Response struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}
