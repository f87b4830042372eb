// Package tvf provides a compact, zero-copy binary serialization format for
// JSON-compatible values: read a document in place without parsing it into
// a separate in-memory tree, and produce incremental updates as small
// deltas appended to the original bytes instead of re-encoding the whole
// document.
//
// # Core features
//
//   - Tagged-byte value model (null/bool/int/float/string/binary/array/dict)
//     decoded directly against a read-only []byte, with a validating mode
//     that rejects malformed input without undefined behavior
//   - A streaming writer with string interning and an append-delta mode
//     that references unchanged material in the original document via
//     back-pointers rather than copying it
//   - A mutable heap overlay (Array/Dict) that can wrap an immutable
//     document and, written back through the encoder, yields a minimal
//     delta reflecting only what actually changed
//   - An optional shared-keys table mapping dict key strings to small
//     integers for denser encoding of documents with many repeated keys
//   - Path specifiers and RFC-6901 JSON Pointers for direct lookup without
//     walking a document by hand, and a deep iterator for full traversal
//   - A bridge to and from JSON text built on encoding/json's own tokenizer
//
// # Basic usage
//
// Writing a document and reading it back:
//
//	w := tvf.NewWriter()
//	_ = w.BeginDictionary(2)
//	_ = w.WriteKey("name")
//	_ = w.WriteString("sensor-1")
//	_ = w.WriteKey("reading")
//	_ = w.WriteFloat(21.5)
//	_ = w.EndDictionary()
//	data, _, _ := w.Finish()
//
//	root := tvf.Parse(data)
//	fmt.Println(root.AsDict().Get("name").AsString())
//
// Applying an edit as a minimal append-delta against the same buffer:
//
//	overlay := tvf.NewMutableDict(root.AsDict(), 0)
//	_ = overlay.Set("reading", someNewReadingValue)
//
//	deltaWriter := tvf.NewWriter(writer.WithBase(data, true))
//	_ = overlay.WriteTo(deltaWriter)
//	delta, _, _ := deltaWriter.Finish()
//
// # Package structure
//
// This file provides convenient top-level wrappers around the value,
// writer, mutable, path, walk, and jsonbridge packages for the most common
// use cases. For advanced usage — custom SharedKeys persistence, explicit
// Scope management, recursive mutable-overlay construction — use those
// packages directly.
package tvf

import (
	"io"

	"github.com/tagvalue/tvf/jsonbridge"
	"github.com/tagvalue/tvf/mutable"
	"github.com/tagvalue/tvf/path"
	"github.com/tagvalue/tvf/sharedkeys"
	"github.com/tagvalue/tvf/value"
	"github.com/tagvalue/tvf/walk"
	"github.com/tagvalue/tvf/writer"
)

// Parse decodes data's root Value without validating the buffer first. Use
// this only for data this process produced or otherwise already trusts;
// for untrusted input use ParseValidated.
func Parse(data []byte) value.Value {
	return value.FromTrustedData(data)
}

// ParseValidated decodes data's root Value, first walking the buffer to
// reject structurally malformed input. It returns the zero Value if data
// is not a well-formed document.
func ParseValidated(data []byte) value.Value {
	return value.FromData(data)
}

// ParseWithSharedKeys decodes data's root Value, resolving any
// integer-encoded dict keys against sk and any extern pointers against
// externBase (nil if data is self-contained).
func ParseWithSharedKeys(data []byte, sk *sharedkeys.SharedKeys, externBase []byte) value.Value {
	var resolver value.SharedKeysResolver
	if sk != nil {
		resolver = sk
	}

	scope := value.NewScope(data, resolver, externBase)

	return value.FromDataWithScope(data, scope)
}

// NewWriter creates a streaming encoder. See the writer package for the
// full set of Options (WithSharedKeys, WithBase, WithCompression, ...).
func NewWriter(opts ...writer.Option) *writer.Writer {
	return writer.New(opts...)
}

// NewSharedKeys creates a thread-safe string-to-small-integer table for
// compact dict key encoding. See the sharedkeys package for persistence
// (NewPersistent) and transactional discipline.
func NewSharedKeys(opts ...sharedkeys.Option) *sharedkeys.SharedKeys {
	return sharedkeys.New(opts...)
}

// NewMutableArray creates a heap-allocated, editable overlay on top of
// source (the zero value.Array for a mutable array with no backing
// document). See the mutable package's CopyFlags for eager/recursive
// population.
func NewMutableArray(source value.Array, flags mutable.CopyFlags) *mutable.HeapArray {
	return mutable.NewArray(source, flags)
}

// NewMutableDict creates a heap-allocated, editable overlay on top of
// source (the zero value.Dict for a mutable dict with no backing
// document). Writing it back through a Writer configured with
// writer.WithBase(source's buffer, ...) yields a minimal append-delta
// where possible.
func NewMutableDict(source value.Dict, flags mutable.CopyFlags) *mutable.HeapDict {
	return mutable.NewDict(source, flags)
}

// CompilePath compiles a dotted/bracketed path specifier (see the path
// package) for repeated evaluation against one or more roots.
func CompilePath(specifier string) (*path.Path, error) {
	return path.Compile(specifier)
}

// Lookup compiles specifier and evaluates it against root in one call,
// returning the zero Value on any miss.
func Lookup(root value.Value, specifier string) (value.Value, error) {
	return path.Eval(specifier, root)
}

// LookupPointer evaluates an RFC-6901 JSON Pointer against root, returning
// the zero Value on any miss.
func LookupPointer(root value.Value, pointer string) (value.Value, error) {
	return path.EvaluateJSONPointer(pointer, root)
}

// Walk returns a deep-traversal Walker rooted at root. See the walk
// package for its pull-iterator (All) and push-callback (Walk) forms.
func Walk(root value.Value) *walk.Walker {
	return walk.New(root)
}

// FromJSON decodes one JSON value from r and writes it to w via the
// writer's normal Begin*/Write*/End* calls.
func FromJSON(r io.Reader, w *writer.Writer) error {
	return jsonbridge.FromJSON(r, w)
}

// ToJSON writes v to w as compact JSON text.
func ToJSON(v value.Value, w io.Writer) error {
	return jsonbridge.ToJSON(v, w)
}
