package writer

import (
	"github.com/tagvalue/tvf/compress"
	"github.com/tagvalue/tvf/format"
	"github.com/tagvalue/tvf/internal/options"
)

// SharedKeysEncoder is the subset of sharedkeys.SharedKeys (or
// sharedkeys.PersistentSharedKeys, which embeds it) the writer needs to
// intern dict keys as integers. It is declared here rather than imported
// from sharedkeys so the two packages don't depend on each other; the
// writer just needs something shaped like it, and sharedkeys.SharedKeys
// already satisfies this structurally.
type SharedKeysEncoder interface {
	EncodeAndAdd(s string) (int32, error)
}

// Option configures a Writer at construction time.
type Option = options.Option[*Writer]

// WithSharedKeys links sk: every WriteKey call first tries sk.EncodeAndAdd,
// falling back to a plain string key when sk rejects or is not given a
// name. The caller is responsible for having an open SharedKeys transaction
// for the lifetime of the write session (see sharedkeys.WithTransaction).
func WithSharedKeys(sk SharedKeysEncoder) Option {
	return options.NoError[*Writer](func(w *Writer) {
		w.sharedKeys = sk
	})
}

// WithUniqueStrings enables string interning: a second WriteString call
// with content already written earlier in this session reuses the earlier
// Value by pointer instead of duplicating it. Off by default, since
// interning only pays for itself when the same strings recur.
func WithUniqueStrings() Option {
	return options.NoError[*Writer](func(w *Writer) {
		w.intern = newInternTable()
	})
}

// WithBase puts the writer into append-delta mode: WriteValue for a Value
// whose storage is base stages a pointer into base instead of copying it,
// and markExtern controls whether those pointers set the wire extern bit
// (set this when base will be registered as a separate Scope.externBase at
// read time; leave it false when base and the writer's own output will be
// concatenated into one contiguous buffer before reading).
func WithBase(base []byte, markExtern bool) Option {
	return options.NoError[*Writer](func(w *Writer) {
		w.base = base
		w.markExternPointers = markExtern
	})
}

// WithoutTrailer disables Finish's 2-byte root trailer, for callers that
// track the root position out of band (e.g. embedding the encoded bytes as
// one element of a larger structure via WriteRaw).
func WithoutTrailer() Option {
	return options.NoError[*Writer](func(w *Writer) {
		w.trailer = false
	})
}

// WithCompression compresses Finish's output with codec, tagging the result
// with compressionType so the caller can record how to reverse it;
// compression is never self-describing in the byte stream itself.
func WithCompression(compressionType format.CompressionType, codec compress.Codec) Option {
	return options.NoError[*Writer](func(w *Writer) {
		w.compressionType = compressionType
		w.compressor = codec
	})
}

// WithInitialCapacity hints the output buffer's starting size, avoiding
// early reallocations for callers who know roughly how large the document
// will be.
func WithInitialCapacity(n int) Option {
	return options.NoError[*Writer](func(w *Writer) {
		w.initialCapacity = n
	})
}
