// Package mutable implements the heap-allocated overlay collections:
// HeapArray and HeapDict wrap an optional immutable source and accumulate
// edits as a sparse set of slots, falling through to the source for
// anything untouched. Writing one back through the writer package either
// emits only the touched keys as a parent-referencing delta (dicts, when
// the source is shallow and already lives in the writer's base buffer) or
// re-encodes the merged result from scratch.
//
// Neither type is safe for concurrent use. Structural mutation (Set,
// Insert, Remove, RemoveAll, or promoting a child to mutable) invalidates
// any iteration in progress on the same collection; a pull iterator that
// notices this panics with errs.ErrIteratorInvalidated rather than
// returning inconsistent data, mirroring how the rest of this module
// reserves panics for programmer-error conditions instead of expected,
// data-dependent failures.
package mutable

import "github.com/tagvalue/tvf/writer"

// Collection is implemented by HeapArray and HeapDict. It exposes only what
// the writer's recursive encode path needs: whether the collection has any
// edits worth re-encoding, and how to write itself out.
type Collection interface {
	// Changed reports whether this collection (or any child promoted to a
	// mutable collection through it) has been structurally edited since
	// construction.
	Changed() bool

	// WriteTo emits this collection's effective content through w, as if by
	// BeginArray/BeginDictionary plus one WriteValue-equivalent call per
	// child.
	WriteTo(w *writer.Writer) error
}

// CopyFlags controls how NewArray/NewDict populate their slots from a
// source at construction time.
type CopyFlags uint8

const (
	// CopyImmutables eagerly copies every source element/pair into a local
	// slot instead of leaving it to fall through lazily. Without this flag,
	// slots are created only as Set/Insert/Remove/GetMutable* touch them.
	CopyImmutables CopyFlags = 1 << iota

	// CopyRecursive, combined with CopyImmutables, promotes every
	// array/dict-typed source element to its own mutable collection up
	// front instead of copying it as an opaque immutable Value. Has no
	// effect without CopyImmutables.
	CopyRecursive
)

func (f CopyFlags) eager() bool     { return f&CopyImmutables != 0 }
func (f CopyFlags) recursive() bool { return f&CopyRecursive != 0 }
