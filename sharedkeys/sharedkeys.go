// Package sharedkeys implements the monotonically growing string↔small-int
// table used to encode dict keys as integer Values. SharedKeys is the base,
// in-memory table; PersistentSharedKeys (persistent.go) adds a committed/
// pending split and disk round-tripping on top of it.
package sharedkeys

import (
	"sync"

	"github.com/tagvalue/tvf/errs"
	"github.com/tagvalue/tvf/format"
	"github.com/tagvalue/tvf/internal/hash"
	"github.com/tagvalue/tvf/internal/options"
)

const shardCount = 16

type shard struct {
	byKey map[string]int32
	mu    sync.RWMutex
}

// SharedKeys is a thread-safe table assigning small, stable integers to
// strings. Encode takes only its shard's read lock, so Encode calls on
// distinct shards never block each other; Lookup, Count and adds
// (EncodeAndAdd) are serialized by a single table-wide lock.
//
// The zero value is not usable; construct with New.
type SharedKeys struct {
	mu            sync.Mutex
	byIndex       []string
	shards        [shardCount]shard
	maxKeyLen     int
	inTransaction bool
}

// Option configures a SharedKeys at construction time.
type Option = options.Option[*SharedKeys]

// WithMaxKeyLength overrides the default maximum eligible key length (16).
func WithMaxKeyLength(n int) Option {
	return options.NoError[*SharedKeys](func(sk *SharedKeys) {
		sk.maxKeyLen = n
	})
}

// New creates an empty SharedKeys table.
func New(opts ...Option) *SharedKeys {
	sk := &SharedKeys{maxKeyLen: 16}
	for i := range sk.shards {
		sk.shards[i].byKey = make(map[string]int32)
	}

	_ = options.Apply(sk, opts...)

	return sk
}

func (sk *SharedKeys) shardFor(s string) *shard {
	return &sk.shards[hash.Bucket(s)%shardCount]
}

// Encode returns the integer assigned to s, if any. It never adds s.
func (sk *SharedKeys) Encode(s string) (int32, bool) {
	sh := sk.shardFor(s)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	i, ok := sh.byKey[s]

	return i, ok
}

// Lookup returns the string assigned to i, if any.
func (sk *SharedKeys) Lookup(i int32) (string, bool) {
	sk.mu.Lock()
	defer sk.mu.Unlock()

	if i < 0 || int(i) >= len(sk.byIndex) {
		return "", false
	}

	return sk.byIndex[i], true
}

// Count returns the number of strings currently assigned.
func (sk *SharedKeys) Count() int {
	sk.mu.Lock()
	defer sk.mu.Unlock()

	return len(sk.byIndex)
}

// Strings returns a copy of the assigned strings in assignment order, where
// index i is the string encoded as integer i.
func (sk *SharedKeys) Strings() []string {
	sk.mu.Lock()
	defer sk.mu.Unlock()

	out := make([]string, len(sk.byIndex))
	copy(out, sk.byIndex)

	return out
}

func (sk *SharedKeys) eligible(s string) bool {
	if len(s) == 0 || len(s) > sk.maxKeyLen {
		return false
	}

	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return false
		}
	}

	return true
}

// InTransaction reports whether the table currently accepts new keys.
func (sk *SharedKeys) InTransaction() bool {
	sk.mu.Lock()
	defer sk.mu.Unlock()

	return sk.inTransaction
}

// TransactionBegan opens the table for new key assignment.
func (sk *SharedKeys) TransactionBegan() {
	sk.mu.Lock()
	sk.inTransaction = true
	sk.mu.Unlock()
}

// TransactionEnded closes the table to new key assignment.
func (sk *SharedKeys) TransactionEnded() {
	sk.mu.Lock()
	sk.inTransaction = false
	sk.mu.Unlock()
}

// WithTransaction runs fn with a transaction open, guaranteeing
// TransactionEnded runs even if fn panics or returns an error.
func (sk *SharedKeys) WithTransaction(fn func() error) error {
	sk.TransactionBegan()
	defer sk.TransactionEnded()

	return fn()
}

// EncodeAndAdd returns the integer assigned to s, assigning a new one if s
// is not yet known. Assignment only happens inside a transaction, for
// eligible strings, while the table has room.
func (sk *SharedKeys) EncodeAndAdd(s string) (int32, error) {
	if i, ok := sk.Encode(s); ok {
		return i, nil
	}

	if !sk.eligible(s) {
		return 0, errs.ErrNotFound
	}

	sk.mu.Lock()
	defer sk.mu.Unlock()

	if !sk.inTransaction {
		return 0, errs.ErrSharedKeysNotInTransaction
	}

	// Re-check under the add lock: another goroutine may have raced us
	// between the shard-locked Encode above and acquiring this lock.
	raceShard := sk.shardFor(s)
	raceShard.mu.RLock()
	i, ok := raceShard.byKey[s]
	raceShard.mu.RUnlock()
	if ok {
		return i, nil
	}

	if len(sk.byIndex) >= format.MaxSharedKeys {
		return 0, errs.ErrSharedKeysFull
	}

	idx := int32(len(sk.byIndex))
	sk.byIndex = append(sk.byIndex, s)

	sh := sk.shardFor(s)
	sh.mu.Lock()
	sh.byKey[s] = idx
	sh.mu.Unlock()

	return idx, nil
}

// RevertToCount truncates the table back to its first n entries. Callers
// must guarantee no already-encoded data references the removed keys.
func (sk *SharedKeys) RevertToCount(n int) {
	sk.mu.Lock()
	defer sk.mu.Unlock()

	if n >= len(sk.byIndex) || n < 0 {
		return
	}

	for i := n; i < len(sk.byIndex); i++ {
		s := sk.byIndex[i]
		sh := sk.shardFor(s)
		sh.mu.Lock()
		delete(sh.byKey, s)
		sh.mu.Unlock()
	}

	sk.byIndex = sk.byIndex[:n]
}

// LoadFrom absorbs strs as an authoritative ordering, appending only the
// entries beyond what this table already has. It fails if strs disagrees
// with any entry this table already holds.
func (sk *SharedKeys) LoadFrom(strs []string) error {
	sk.mu.Lock()
	defer sk.mu.Unlock()

	overlap := len(strs)
	if len(sk.byIndex) < overlap {
		overlap = len(sk.byIndex)
	}

	for i := 0; i < overlap; i++ {
		if strs[i] != sk.byIndex[i] {
			return errs.ErrSharedKeysDiverged
		}
	}

	for i := len(sk.byIndex); i < len(strs); i++ {
		s := strs[i]
		idx := int32(len(sk.byIndex))
		sk.byIndex = append(sk.byIndex, s)

		sh := sk.shardFor(s)
		sh.mu.Lock()
		sh.byKey[s] = idx
		sh.mu.Unlock()
	}

	return nil
}
