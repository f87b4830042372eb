// Package dupcheck tracks the set of keys written into a single dict frame
// so the writer can reject a duplicate key before it corrupts the frame's
// sorted-key invariant.
package dupcheck

import "github.com/tagvalue/tvf/errs"

// Tracker tracks the dict keys written so far within one writer dict frame.
// A Tracker is scoped to a single frame; the writer resets or discards it
// when the frame closes.
type Tracker struct {
	seen    map[string]struct{}
	ordered []string
}

// NewTracker creates a new, empty key tracker.
func NewTracker() *Tracker {
	return &Tracker{
		seen: make(map[string]struct{}),
	}
}

// Track records key as written to the current frame.
// It returns errs.ErrDuplicateKey if key was already tracked in this frame.
func (t *Tracker) Track(key string) error {
	if _, exists := t.seen[key]; exists {
		return errs.ErrDuplicateKey
	}

	t.seen[key] = struct{}{}
	t.ordered = append(t.ordered, key)

	return nil
}

// Keys returns the keys tracked so far, in the order Track was called.
func (t *Tracker) Keys() []string {
	return t.ordered
}

// Count returns the number of tracked keys.
func (t *Tracker) Count() int {
	return len(t.ordered)
}

// Reset clears all tracked keys, preserving the underlying map's capacity
// for reuse across dict frames within the same writer session.
func (t *Tracker) Reset() {
	for k := range t.seen {
		delete(t.seen, k)
	}
	t.ordered = t.ordered[:0]
}
