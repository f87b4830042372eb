package mutable

import (
	"iter"
	"sort"
	"strings"

	"github.com/tagvalue/tvf/errs"
	"github.com/tagvalue/tvf/format"
	"github.com/tagvalue/tvf/value"
	"github.com/tagvalue/tvf/writer"
)

type dictSlotKind uint8

const (
	dictSlotImmutable dictSlotKind = iota
	dictSlotMutable
	dictSlotTombstone // removed here; masks a source entry of the same key
)

type dictSlot struct {
	kind dictSlotKind
	imm  value.Value
	heap Collection
}

// HeapDict is a mutable overlay on top of an optional immutable source
// dict. Keys not present locally read through to the source; a Remove of a
// source-backed key installs a tombstone rather than deleting, matching how
// the wire format's own parent-inheritance shadowing works (§3.2).
type HeapDict struct {
	source  value.Dict
	entries map[string]*dictSlot
	changed bool
	gen     uint64
}

var _ Collection = (*HeapDict)(nil)

// NewDict creates a HeapDict over source (which may be the zero Dict, for a
// mutable dict with no backing document). flags controls whether source's
// pairs are copied into local entries immediately or left to fall through
// lazily.
func NewDict(source value.Dict, flags CopyFlags) *HeapDict {
	d := &HeapDict{source: source, entries: make(map[string]*dictSlot)}

	if flags.eager() && source.IsValid() {
		for k, v := range source.All() {
			d.entries[k] = wrapDictChildValue(v, flags)
		}
	}

	return d
}

func wrapDictChildValue(v value.Value, flags CopyFlags) *dictSlot {
	if flags.recursive() {
		switch v.Type() {
		case format.TypeArray:
			return &dictSlot{kind: dictSlotMutable, heap: NewArray(v.AsArray(), flags)}
		case format.TypeDict:
			return &dictSlot{kind: dictSlotMutable, heap: NewDict(v.AsDict(), flags)}
		}
	}

	return &dictSlot{kind: dictSlotImmutable, imm: v}
}

// Changed reports whether d has any local edits.
func (d *HeapDict) Changed() bool {
	return d.changed
}

func (d *HeapDict) markChanged() {
	d.changed = true
	d.gen++
}

// Get looks up key: the local entry if one exists (a tombstone or a
// promoted mutable child both report as not found / zero Value), else the
// source.
func (d *HeapDict) Get(key string) value.Value {
	if s, ok := d.entries[key]; ok {
		if s.kind == dictSlotImmutable {
			return s.imm
		}

		return value.Value{}
	}

	if d.source.IsValid() {
		return d.source.Get(key)
	}

	return value.Value{}
}

// IsMutable reports whether key's local entry is a child already promoted
// to a mutable collection.
func (d *HeapDict) IsMutable(key string) bool {
	s, ok := d.entries[key]

	return ok && s.kind == dictSlotMutable
}

// sourceHasKey reports whether d's source has key, distinguishing a
// present-but-null value from a genuine miss.
func (d *HeapDict) sourceHasKey(key string) bool {
	return d.source.IsValid() && d.source.Get(key).IsValid()
}

// Set stores v under key, overwriting any existing local entry (including a
// tombstone).
func (d *HeapDict) Set(key string, v value.Value) error {
	d.entries[key] = &dictSlot{kind: dictSlotImmutable, imm: v}
	d.markChanged()

	return nil
}

// Remove deletes key. If the source holds key, a tombstone is installed so
// the source's entry stays shadowed; otherwise the local entry (if any) is
// simply dropped.
func (d *HeapDict) Remove(key string) error {
	if d.sourceHasKey(key) {
		d.entries[key] = &dictSlot{kind: dictSlotTombstone}
	} else {
		delete(d.entries, key)
	}

	d.markChanged()

	return nil
}

// RemoveAll clears every local entry and tombstones every key the source
// has, so iteration afterward yields nothing.
func (d *HeapDict) RemoveAll() {
	d.entries = make(map[string]*dictSlot)

	if d.source.IsValid() {
		for k := range d.source.All() {
			d.entries[k] = &dictSlot{kind: dictSlotTombstone}
		}
	}

	d.markChanged()
}

// Count returns d's effective number of entries, merging inherited source
// keys and excluding tombstoned ones.
func (d *HeapDict) Count() int {
	n := 0
	for range d.All() {
		n++
	}

	return n
}

func (d *HeapDict) getMutableChild(key string, flags CopyFlags, want format.Type) (Collection, error) {
	if s, ok := d.entries[key]; ok {
		if s.kind == dictSlotMutable {
			return s.heap, nil
		}

		var v value.Value
		if s.kind == dictSlotImmutable {
			v = s.imm
		}

		return d.promote(key, v, flags, want), nil
	}

	var v value.Value
	if d.source.IsValid() {
		v = d.source.Get(key)
	}

	return d.promote(key, v, flags, want), nil
}

func (d *HeapDict) promote(key string, v value.Value, flags CopyFlags, want format.Type) Collection {
	var heap Collection
	switch want {
	case format.TypeArray:
		heap = NewArray(v.AsArray(), flags)
	default:
		heap = NewDict(v.AsDict(), flags)
	}

	d.entries[key] = &dictSlot{kind: dictSlotMutable, heap: heap}
	d.markChanged()

	return heap
}

// GetMutableArray promotes the child array at key to a HeapArray, returning
// the same instance on repeated calls until key is overwritten by Set.
func (d *HeapDict) GetMutableArray(key string, flags CopyFlags) (*HeapArray, error) {
	heap, err := d.getMutableChild(key, flags, format.TypeArray)
	if err != nil {
		return nil, err
	}

	return heap.(*HeapArray), nil
}

// GetMutableDict promotes the child dict at key to a HeapDict, returning the
// same instance on repeated calls until key is overwritten by Set.
func (d *HeapDict) GetMutableDict(key string, flags CopyFlags) (*HeapDict, error) {
	heap, err := d.getMutableChild(key, flags, format.TypeDict)
	if err != nil {
		return nil, err
	}

	return heap.(*HeapDict), nil
}

// All returns a pull iterator over d's effective entries: an ordered merge
// of local entries and the source's iteration, local entries winning ties
// and tombstones skipped, the same algorithm value.Dict.All uses for parent
// inheritance. A promoted mutable child yields the zero Value; use
// GetMutableArray/GetMutableDict to reach it directly. The iterator panics
// with errs.ErrIteratorInvalidated if d is structurally mutated while it is
// in progress.
func (d *HeapDict) All() iter.Seq2[string, value.Value] {
	return func(yield func(string, value.Value) bool) {
		gen := d.gen

		localKeys := make([]string, 0, len(d.entries))
		for k := range d.entries {
			localKeys = append(localKeys, k)
		}
		sort.Strings(localKeys)

		var pull func() (string, value.Value, bool)
		if d.source.IsValid() {
			next, stop := iter.Pull2(d.source.All())
			defer stop()
			pull = next
		} else {
			pull = func() (string, value.Value, bool) { return "", value.Value{}, false }
		}

		li := 0
		sk, sv, hasSource := pull()

		emitLocal := func(key string) bool {
			slot := d.entries[key]
			if slot.kind == dictSlotTombstone {
				return true
			}

			val := value.Value{}
			if slot.kind == dictSlotImmutable {
				val = slot.imm
			}

			return yield(key, val)
		}

		for li < len(localKeys) || hasSource {
			if d.gen != gen {
				panic(errs.ErrIteratorInvalidated)
			}

			switch {
			case li >= len(localKeys):
				if !yield(sk, sv) {
					return
				}
				sk, sv, hasSource = pull()

			case !hasSource:
				key := localKeys[li]
				li++
				if !emitLocal(key) {
					return
				}

			default:
				key := localKeys[li]
				switch cmp := strings.Compare(key, sk); {
				case cmp < 0:
					li++
					if !emitLocal(key) {
						return
					}
				case cmp == 0:
					li++
					emitted := emitLocal(key)
					sk, sv, hasSource = pull()
					if !emitted {
						return
					}
				default:
					if !yield(sk, sv) {
						return
					}
					sk, sv, hasSource = pull()
				}
			}
		}
	}
}

// canWriteAsDelta reports whether WriteTo should emit only d's local
// entries as a parent-referencing delta: the source must live in w's base
// buffer (so the parent pointer is cheap), must not itself already inherit
// from a grandparent (keeping the read-time ancestry at one level), and
// must actually have fewer local edits than the dict's total size.
func (d *HeapDict) canWriteAsDelta(w *writer.Writer) bool {
	if !d.source.IsValid() || !w.References(d.source.AsValue()) {
		return false
	}

	if _, hasGrandparent := d.source.Parent(); hasGrandparent {
		return false
	}

	return len(d.entries) > 0 && len(d.entries) < d.Count()
}

// WriteTo emits d's effective content through w: a parent-referencing delta
// when canWriteAsDelta holds, otherwise the full merged result written from
// scratch.
func (d *HeapDict) WriteTo(w *writer.Writer) error {
	if d.canWriteAsDelta(w) {
		return d.writeDelta(w)
	}

	return d.writeFull(w)
}

func (d *HeapDict) writeDelta(w *writer.Writer) error {
	if err := w.BeginDictionaryWithParent(d.source.AsValue(), len(d.entries)); err != nil {
		return err
	}

	keys := make([]string, 0, len(d.entries))
	for k := range d.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		slot := d.entries[k]

		switch slot.kind {
		case dictSlotTombstone:
			if err := w.WriteUndefinedKey(k); err != nil {
				return err
			}
		case dictSlotImmutable:
			if err := w.WriteKey(k); err != nil {
				return err
			}
			if err := w.WriteValue(slot.imm); err != nil {
				return err
			}
		case dictSlotMutable:
			if err := w.WriteKey(k); err != nil {
				return err
			}
			if err := slot.heap.WriteTo(w); err != nil {
				return err
			}
		}
	}

	return w.EndDictionary()
}

func (d *HeapDict) writeFull(w *writer.Writer) error {
	total := d.Count()

	if err := w.BeginDictionary(total); err != nil {
		return err
	}

	for k, v := range d.All() {
		if err := w.WriteKey(k); err != nil {
			return err
		}

		if s, ok := d.entries[k]; ok && s.kind == dictSlotMutable {
			if err := s.heap.WriteTo(w); err != nil {
				return err
			}
			continue
		}

		if err := w.WriteValue(v); err != nil {
			return err
		}
	}

	return w.EndDictionary()
}
