// Package walk implements a deep traversal over a decoded Value tree,
// visiting the root first, then every container's direct children as one
// contiguous run before descending into any of them — the same level-order
// shape a breadth-first queue produces, just applied across the whole tree
// rather than within a single container.
package walk

import (
	"iter"

	"github.com/tagvalue/tvf/format"
	"github.com/tagvalue/tvf/value"
)

type frame struct {
	path Path
	val  value.Value
}

// Walker drives a traversal starting at root. It is not safe for concurrent
// use, and only one of its All/Walk calls may be in progress at a time,
// since SkipChildren acts on the traversal currently running.
type Walker struct {
	root value.Value
	skip bool
}

// New creates a Walker rooted at root.
func New(root value.Value) *Walker {
	return &Walker{root: root}
}

// SkipChildren prunes the subtree of the value most recently yielded by the
// in-progress traversal: its children (if it's a container) are never
// visited. It has no effect outside an active All or Walk call.
func (w *Walker) SkipChildren() {
	w.skip = true
}

// All returns a pull iterator over (path, value) pairs: first the root with
// the empty Path, then the direct children of the first container
// encountered, then that child's children, and so on — a plain FIFO queue
// of deferred work produces this order directly, rather than the stack a
// naive depth-first walk would reach for.
func (w *Walker) All() iter.Seq2[Path, value.Value] {
	return func(yield func(Path, value.Value) bool) {
		queue := []frame{{val: w.root}}

		for len(queue) > 0 {
			f := queue[0]
			queue = queue[1:]

			w.skip = false
			if !yield(f.path, f.val) {
				return
			}
			if w.skip {
				continue
			}

			queue = append(queue, childFrames(f)...)
		}
	}
}

func childFrames(f frame) []frame {
	switch f.val.Type() {
	case format.TypeArray:
		a := f.val.AsArray()
		frames := make([]frame, 0, a.Count())
		for i, child := range a.All() {
			frames = append(frames, frame{path: appendIndexStep(f.path, i), val: child})
		}

		return frames

	case format.TypeDict:
		d := f.val.AsDict()
		frames := make([]frame, 0, d.Count())
		for k, child := range d.All() {
			frames = append(frames, frame{path: appendKeyStep(f.path, k), val: child})
		}

		return frames
	}

	return nil
}

// Walk is a push-style equivalent of All: fn is called for every (path,
// value) pair in the same order All would yield them, stopping the
// traversal early if fn returns false. SkipChildren may be called from
// within fn.
func (w *Walker) Walk(fn func(Path, value.Value) bool) {
	for p, v := range w.All() {
		if !fn(p, v) {
			return
		}
	}
}
