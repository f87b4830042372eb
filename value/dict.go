package value

import (
	"iter"
	"sort"
	"strings"

	"github.com/tagvalue/tvf/format"
)

// Dict is a read-only view of a TagDict Value.
type Dict struct {
	v Value
}

// IsValid reports whether d refers to an actual dict.
func (d Dict) IsValid() bool {
	return d.v.IsValid()
}

func (d Dict) wide() bool {
	return d.v.header()&0x08 != 0
}

func (d Dict) width() format.Width {
	if d.wide() {
		return format.Wide
	}

	return format.Narrow
}

// rawPairCount returns the number of key/value pairs stored in d's own
// header, including the parent sentinel pair if present.
func (d Dict) rawPairCount() (count int, childrenStart int) {
	a := Array{v: d.v}

	return a.header()
}

func (d Dict) keySlot(i int) Value {
	_, childrenStart := d.rawPairCount()
	width := d.width()

	return readSlot(d.v.data, childrenStart+2*i*int(width), width, d.v.scope)
}

func (d Dict) valueSlot(i int) Value {
	_, childrenStart := d.rawPairCount()
	width := d.width()

	return readSlot(d.v.data, childrenStart+(2*i+1)*int(width), width, d.v.scope)
}

type rawKey struct {
	isInt bool
	i     int32
	s     string
}

func (d Dict) rawKeyAt(i int) rawKey {
	kv := d.keySlot(i)
	if kv.tag() == format.TagShortInt || kv.tag() == format.TagInt {
		return rawKey{isInt: true, i: int32(kv.AsInt())}
	}

	return rawKey{s: kv.AsString()}
}

func compareRawKey(a, b rawKey) int {
	switch {
	case a.isInt && b.isInt:
		switch {
		case a.i < b.i:
			return -1
		case a.i > b.i:
			return 1
		default:
			return 0
		}
	case !a.isInt && !b.isInt:
		return strings.Compare(a.s, b.s)
	case a.isInt:
		return -1
	default:
		return 1
	}
}

// AsValue returns the underlying Value d was read from.
func (d Dict) AsValue() Value {
	return d.v
}

// Parent reports whether d inherits from a parent dict (the §3.2 sentinel
// pair), returning it if so. Exported for callers such as the mutable
// overlay that need to reason about ancestry depth before re-encoding a
// dict as a delta against its own source.
func (d Dict) Parent() (Dict, bool) {
	return d.hasParent()
}

// hasParent reports whether d's first pair is the parent-dict sentinel, and
// if so returns the own-pairs start index (1) and the parent Dict.
func (d Dict) hasParent() (parent Dict, ok bool) {
	n, _ := d.rawPairCount()
	if n == 0 {
		return Dict{}, false
	}

	k := d.rawKeyAt(0)
	if !k.isInt || k.i != int32(format.ParentKeySentinel) {
		return Dict{}, false
	}

	pv := d.valueSlot(0)
	if pv.tag() != format.TagDict {
		return Dict{}, false
	}

	return pv.AsDict(), true
}

func (d Dict) ownPairRange() (start, n int) {
	total, _ := d.rawPairCount()
	if _, ok := d.hasParent(); ok {
		return 1, total - 1
	}

	return 0, total
}

func (d Dict) binarySearch(key rawKey) (idx int, found bool) {
	start, n := d.ownPairRange()

	idx = sort.Search(n, func(i int) bool {
		return compareRawKey(d.rawKeyAt(start+i), key) >= 0
	})

	if idx < n && compareRawKey(d.rawKeyAt(start+idx), key) == 0 {
		return start + idx, true
	}

	return 0, false
}

// Get looks up key, following parent inheritance and treating an
// undefined-tagged match as absent. It returns the zero Value when key is
// not present.
func (d Dict) Get(key string) Value {
	v, _ := d.getWithHint(key, 0, false)

	return v
}

func (d Dict) getWithHint(key string, hintInt int32, hasHint bool) (Value, bool) {
	if !d.IsValid() {
		return Value{}, false
	}

	// A tombstone found in d's own frame masks the parent's value entirely:
	// it means "removed here", not "fall through".
	if hasHint {
		if idx, found := d.binarySearch(rawKey{isInt: true, i: hintInt}); found {
			val := d.valueSlot(idx)
			if val.IsUndefined() {
				return Value{}, false
			}

			return val, true
		}
	} else if d.v.scope != nil && d.v.scope.sharedKeys != nil {
		if i, ok := d.v.scope.sharedKeys.Encode(key); ok {
			if idx, found := d.binarySearch(rawKey{isInt: true, i: i}); found {
				val := d.valueSlot(idx)
				if val.IsUndefined() {
					return Value{}, false
				}

				return val, true
			}
		}
	}

	if idx, found := d.binarySearch(rawKey{s: key}); found {
		val := d.valueSlot(idx)
		if val.IsUndefined() {
			return Value{}, false
		}

		return val, true
	}

	return d.parentGet(key)
}

func (d Dict) parentGet(key string) (Value, bool) {
	parent, ok := d.hasParent()
	if !ok {
		return Value{}, false
	}

	return parent.getWithHint(key, 0, false)
}

// Key is a reusable lookup handle that caches the SharedKeys integer
// encoding of a key name across repeated lookups against different dicts in
// the same scope.
type Key struct {
	name         string
	cachedInt    int32
	hasCachedInt bool
	triedInt     bool
}

// NewKey creates a lookup helper for name.
func NewKey(name string) *Key {
	return &Key{name: name}
}

// Get looks up k's key in d, reusing a cached SharedKeys encoding when one
// was already resolved by a previous call against a dict in the same scope.
func (k *Key) Get(d Dict) Value {
	if !k.triedInt && d.v.scope != nil && d.v.scope.sharedKeys != nil {
		k.triedInt = true
		if i, ok := d.v.scope.sharedKeys.Encode(k.name); ok {
			k.cachedInt, k.hasCachedInt = i, true
		}
	}

	v, _ := d.getWithHint(k.name, k.cachedInt, k.hasCachedInt)

	return v
}

// Count returns the effective number of entries in d, merging inherited
// parent keys and excluding tombstoned ones.
func (d Dict) Count() int {
	n := 0
	for range d.All() {
		n++
	}

	return n
}

func (d Dict) resolveKeyName(rk rawKey) string {
	if !rk.isInt {
		return rk.s
	}

	if d.v.scope != nil && d.v.scope.sharedKeys != nil {
		if s, ok := d.v.scope.sharedKeys.Lookup(rk.i); ok {
			return s
		}
	}

	return ""
}

// All returns an iterator over d's effective entries (own entries merged
// with inherited parent entries, in ascending key order, tombstones
// skipped).
func (d Dict) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if !d.IsValid() {
			return
		}

		parent, hasParent := d.hasParent()

		start, n := d.ownPairRange()
		ownIdx := 0

		var parentNext func() (rawKey, Value, bool)
		if hasParent {
			pull, stop := iter.Pull2(parent.All())
			defer stop()

			parentNext = func() (rawKey, Value, bool) {
				s, v, ok := pull()
				if !ok {
					return rawKey{}, Value{}, false
				}

				return rawKey{s: s}, v, true
			}
		}

		var pendingParentKey rawKey
		var pendingParentVal Value
		var havePendingParent bool

		if hasParent {
			pendingParentKey, pendingParentVal, havePendingParent = parentNext()
		}

		for ownIdx < n {
			ownKey := d.rawKeyAt(start + ownIdx)
			ownVal := d.valueSlot(start + ownIdx)

			if havePendingParent {
				cmp := compareRawKey(ownKey, pendingParentKey)
				switch {
				case cmp < 0:
					ownIdx++
					if ownVal.IsUndefined() {
						continue
					}
					if !yield(d.resolveKeyName(ownKey), ownVal) {
						return
					}
				case cmp == 0:
					ownIdx++
					pendingParentKey, pendingParentVal, havePendingParent = parentNext()
					if ownVal.IsUndefined() {
						continue
					}
					if !yield(d.resolveKeyName(ownKey), ownVal) {
						return
					}
				default:
					if !yield(d.resolveKeyName(pendingParentKey), pendingParentVal) {
						return
					}
					pendingParentKey, pendingParentVal, havePendingParent = parentNext()
				}

				continue
			}

			ownIdx++
			if ownVal.IsUndefined() {
				continue
			}
			if !yield(d.resolveKeyName(ownKey), ownVal) {
				return
			}
		}

		for havePendingParent {
			if !yield(d.resolveKeyName(pendingParentKey), pendingParentVal) {
				return
			}
			pendingParentKey, pendingParentVal, havePendingParent = parentNext()
		}
	}
}
