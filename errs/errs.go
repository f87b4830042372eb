// Package errs defines the sentinel errors returned across the module.
//
// Callers use errors.Is against these sentinels; functions that need to add
// context wrap them with fmt.Errorf("%w: ...", errs.ErrXxx, ...) rather than
// constructing new error values, so that errors.Is keeps working through the
// wrapping.
package errs

import "errors"

// Reader errors. FromData never returns these directly (it reports failure
// by returning a null root); they surface from APIs that parse sub-structures
// explicitly, such as SharedKeys persistence and Path compilation.
var (
	ErrOutOfRange  = errors.New("tvf: index or iterator out of range")
	ErrInvalidData = errors.New("tvf: invalid or corrupt data")
	ErrNotFound    = errors.New("tvf: not found")
)

// Writer errors.
var (
	ErrValueExpected       = errors.New("tvf: writer expected a value, got a key")
	ErrKeyExpected         = errors.New("tvf: writer expected a dict key, got a value")
	ErrUnclosedContainer   = errors.New("tvf: finish called with an open array or dict")
	ErrNoContainerOpen     = errors.New("tvf: end called with no matching begin")
	ErrTooManyRootValues   = errors.New("tvf: more than one value written at the top level")
	ErrDuplicateKey        = errors.New("tvf: duplicate dict key")
	ErrWriterFinished      = errors.New("tvf: writer already finished or reset")
	ErrReentrantFinish     = errors.New("tvf: finish called from within a child filter callback")
	ErrAncestryTooDeep     = errors.New("tvf: mutable dict's source ancestry is too deep to encode as a delta")
)

// Path errors.
var ErrPathSyntax = errors.New("tvf: malformed path specifier")

// SharedKeys errors.
var (
	ErrSharedKeysNotInTransaction = errors.New("tvf: SharedKeys.EncodeAndAdd called outside a transaction")
	ErrSharedKeysDiverged         = errors.New("tvf: SharedKeys.LoadFrom state diverges from current table")
	ErrSharedKeysFull             = errors.New("tvf: SharedKeys table is full")
)

// Mutable-collection errors.
var (
	ErrIteratorInvalidated = errors.New("tvf: iterator invalidated by a structural mutation")
	ErrIndexOutOfRange     = errors.New("tvf: mutable collection index out of range")
)

// JSON bridge errors.
var ErrJSON = errors.New("tvf: JSON tokenizer rejected input")

// Internal invariant errors.
var ErrInternal = errors.New("tvf: internal invariant violation")
