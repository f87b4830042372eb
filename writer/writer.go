// Package writer implements the streaming encoder half of the tagged value
// format: a frame-stack API that mirrors a JSON-like event sequence
// (BeginArray/BeginDictionary, scalar writes, End) onto the compact wire
// form the value package reads back.
//
// A Writer is not safe for concurrent use and is not reusable after Finish;
// start a new one for the next document.
package writer

import (
	"fmt"

	"github.com/tagvalue/tvf/compress"
	"github.com/tagvalue/tvf/errs"
	"github.com/tagvalue/tvf/format"
	"github.com/tagvalue/tvf/internal/options"
	"github.com/tagvalue/tvf/internal/pool"
	"github.com/tagvalue/tvf/value"
)

// Writer assembles a TVF document by accepting a stream of scalar and
// container events and packing them into a single byte buffer on Finish.
type Writer struct {
	buf   *pool.ByteBuffer
	owned bool // whether buf came from the pool and should be returned on Finish/Reset

	frames []*frame

	sharedKeys SharedKeysEncoder
	intern     *internTable

	base               []byte
	markExternPointers bool

	trailer bool

	compressionType format.CompressionType
	compressor      compress.Codec

	initialCapacity int

	finished bool
}

// New creates a Writer ready to accept one top-level Value.
func New(opts ...Option) *Writer {
	w := &Writer{trailer: true}
	_ = options.Apply(w, opts...)

	size := w.initialCapacity
	if size <= 0 {
		size = pool.OutputBufferDefaultSize
	}
	w.buf = pool.GetOutputBuffer()
	if w.buf.Cap() < size {
		w.buf.Grow(size - w.buf.Cap())
	}
	w.owned = true

	w.frames = []*frame{newFrame(frameRoot)}

	return w
}

// Reset discards any work in progress and returns the Writer's pooled
// buffer, so the Writer must not be used again afterward.
func (w *Writer) Reset() {
	if w.owned && w.buf != nil {
		pool.PutOutputBuffer(w.buf)
	}
	w.buf = nil
	w.frames = nil
	w.finished = true
}

func (w *Writer) top() *frame {
	return w.frames[len(w.frames)-1]
}

// pos returns the absolute position the next appended byte will occupy, in
// the coordinate space local pointers are computed against. In plain and
// extern-pointer (WithBase markExtern=true) modes that's just the writer's
// own buffer length. In contiguous append-delta mode (WithBase markExtern=
// false) the caller will place base immediately before this writer's output,
// so local pointers - including ones referencing base itself - must be
// computed as if base's bytes already preceded the buffer.
func (w *Writer) pos() int {
	if w.base != nil && !w.markExternPointers {
		return len(w.base) + w.buf.Len()
	}

	return w.buf.Len()
}

func (w *Writer) appendBytes(b []byte) {
	w.buf.MustWrite(b)
}

// stageEncoded packs encoded (an unpadded header+payload Value body) into
// the current frame: inline if the padded result fits in 4 bytes, otherwise
// written immediately to the output buffer with a pointer marker staged in
// its place.
func (w *Writer) stageEncoded(encoded []byte) stagedSlot {
	padded := padEven(append([]byte(nil), encoded...))

	if len(padded) <= 4 {
		return stagedSlot{kind: slotInline, inline: padded}
	}

	target := w.pos()
	w.appendBytes(padded)

	return stagedSlot{kind: slotPointerLocal, target: target}
}

func sameBacking(a, b []byte) bool {
	return len(a) > 0 && len(b) > 0 && len(a) == len(b) && &a[0] == &b[0]
}

// References reports whether v was decoded from the buffer this writer was
// configured with via WithBase, making it eligible for pointer-referencing
// instead of copying. Callers such as the mutable overlay use this to decide
// whether a dict can be re-encoded as a parent-referencing delta.
func (w *Writer) References(v value.Value) bool {
	if w.base == nil || !v.IsValid() {
		return false
	}

	buf, _, ok := v.RawOffset()

	return ok && sameBacking(buf, w.base)
}

func (w *Writer) pushValueSlot(slot stagedSlot) error {
	if slot.kind == slotInline && len(slot.inline) == 4 {
		w.top().forceWide = true
	}

	f := w.top()

	switch f.kind {
	case frameRoot:
		if len(f.slots) > 0 {
			return errs.ErrTooManyRootValues
		}
		f.slots = append(f.slots, slot)

	case frameArray:
		f.slots = append(f.slots, slot)

	case frameDict:
		if f.expectKey {
			return errs.ErrKeyExpected
		}
		f.valSlot[len(f.valSlot)-1] = slot
		f.expectKey = true

	default:
		return fmt.Errorf("%w: unknown frame kind", errs.ErrInternal)
	}

	return nil
}

// writeScalar is the common path for every Write* scalar method: encode,
// stage, and push into the current frame.
func (w *Writer) writeScalar(encoded []byte) error {
	return w.pushValueSlot(w.stageEncoded(encoded))
}

// WriteNull writes a Special-null Value.
func (w *Writer) WriteNull() error {
	return w.writeScalar(encodeSpecial(format.SpecialNull))
}

func (w *Writer) writeUndefined() error {
	return w.writeScalar(encodeSpecial(format.SpecialUndefined))
}

// WriteBool writes a Special-true or Special-false Value.
func (w *Writer) WriteBool(b bool) error {
	if b {
		return w.writeScalar(encodeSpecial(format.SpecialTrue))
	}

	return w.writeScalar(encodeSpecial(format.SpecialFalse))
}

// WriteInt writes a signed integer, choosing ShortInt when it fits and the
// narrowest Int encoding otherwise.
func (w *Writer) WriteInt(v int64) error {
	return w.writeScalar(encodeSignedInt(v))
}

// WriteUInt writes an unsigned integer, choosing ShortInt when it fits and
// the narrowest unsigned Int encoding otherwise.
func (w *Writer) WriteUInt(v uint64) error {
	return w.writeScalar(encodeUnsignedInt(v))
}

// WriteFloat writes a 4-byte float32 Value.
func (w *Writer) WriteFloat(v float32) error {
	return w.writeScalar(encodeFloat32(v))
}

// WriteDouble writes a float64 Value, using the compact FloatSize64As32
// wire form when v round-trips exactly through a float32.
func (w *Writer) WriteDouble(v float64) error {
	return w.writeScalar(encodeDouble(v))
}

// WriteData writes an opaque Binary Value. data is copied.
func (w *Writer) WriteData(data []byte) error {
	return w.writeScalar(encodeStringLike(format.TagBinary, data))
}

// WriteString writes a String Value, reusing an earlier identical string's
// encoding when interning is enabled (see WithUniqueStrings).
func (w *Writer) WriteString(s string) error {
	if w.intern != nil && internable(s) {
		if pos, ok := w.intern.lookup(s); ok {
			return w.pushValueSlot(stagedSlot{kind: slotPointerLocal, target: pos})
		}
	}

	encoded := encodeStringLike(format.TagString, []byte(s))

	if w.intern != nil && internable(s) {
		padded := padEven(append([]byte(nil), encoded...))
		if len(padded) > 4 {
			// Only pointer-staged strings have a stable position worth
			// reusing; a 2-4 byte inline string is cheaper to duplicate
			// than to chase a pointer for.
			w.intern.record(s, w.pos())
		}
	}

	return w.writeScalar(encoded)
}

// WriteRaw stages encoded, an already-complete Value body (header plus
// payload, unpadded), without interpreting it. Callers are responsible for
// encoded being a structurally valid Value.
func (w *Writer) WriteRaw(encoded []byte) error {
	return w.pushValueSlot(w.stageEncoded(encoded))
}

// resolveValueSlot stages v for writing: a pointer into base if v lives
// there, otherwise a full (possibly recursive) re-encoding of v's content.
func (w *Writer) resolveValueSlot(v value.Value) (stagedSlot, error) {
	if !v.IsValid() {
		return w.stageEncoded(encodeSpecial(format.SpecialNull)), nil
	}

	if w.base != nil {
		if buf, pos, ok := v.RawOffset(); ok && sameBacking(buf, w.base) {
			if w.markExternPointers {
				return stagedSlot{kind: slotPointerExtern, target: pos}, nil
			}

			return stagedSlot{kind: slotPointerLocal, target: pos}, nil
		}
	}

	switch v.Type() {
	case format.TypeBool:
		return w.stageEncoded(encodeSpecial(boolSpecial(v.AsBool()))), nil
	case format.TypeNumber:
		if v.IsFloat() {
			return w.stageEncoded(encodeDouble(v.AsDouble())), nil
		}

		return w.stageEncoded(encodeSignedInt(v.AsInt())), nil
	case format.TypeString:
		return w.stageEncoded(encodeStringLike(format.TagString, []byte(v.AsString()))), nil
	case format.TypeData:
		return w.stageEncoded(encodeStringLike(format.TagBinary, v.AsData())), nil
	case format.TypeArray:
		return w.resolveArraySlot(v.AsArray())
	case format.TypeDict:
		return w.resolveDictSlot(v.AsDict())
	default:
		if v.IsUndefined() {
			return w.stageEncoded(encodeSpecial(format.SpecialUndefined)), nil
		}

		return w.stageEncoded(encodeSpecial(format.SpecialNull)), nil
	}
}

func boolSpecial(b bool) format.Special {
	if b {
		return format.SpecialTrue
	}

	return format.SpecialFalse
}

func (w *Writer) resolveArraySlot(a value.Array) (stagedSlot, error) {
	if err := w.BeginArray(a.Count()); err != nil {
		return stagedSlot{}, err
	}

	for _, child := range a.All() {
		if err := w.WriteValue(child); err != nil {
			return stagedSlot{}, err
		}
	}

	target, err := w.endContainer(format.TagArray)
	if err != nil {
		return stagedSlot{}, err
	}

	return stagedSlot{kind: slotPointerLocal, target: target}, nil
}

func (w *Writer) resolveDictSlot(d value.Dict) (stagedSlot, error) {
	if err := w.BeginDictionary(d.Count()); err != nil {
		return stagedSlot{}, err
	}

	for k, child := range d.All() {
		if err := w.WriteKey(k); err != nil {
			return stagedSlot{}, err
		}
		if err := w.WriteValue(child); err != nil {
			return stagedSlot{}, err
		}
	}

	target, err := w.endContainer(format.TagDict)
	if err != nil {
		return stagedSlot{}, err
	}

	return stagedSlot{kind: slotPointerLocal, target: target}, nil
}

// WriteValue re-encodes an already-decoded Value, recursing into arrays and
// dicts. If the writer is in append-delta mode (see WithBase) and v was
// decoded from the base buffer, it is referenced by pointer instead of
// copied.
func (w *Writer) WriteValue(v value.Value) error {
	slot, err := w.resolveValueSlot(v)
	if err != nil {
		return err
	}

	return w.pushValueSlot(slot)
}

// BeginArray opens a new array frame. reserve is a capacity hint for the
// staged-children slice and need not be exact.
func (w *Writer) BeginArray(reserve int) error {
	if top := w.top(); top.kind == frameDict && top.expectKey {
		return errs.ErrKeyExpected
	} else if top.kind == frameRoot && len(top.slots) > 0 {
		return errs.ErrTooManyRootValues
	}

	f := newFrame(frameArray)
	if reserve > 0 {
		f.slots = make([]stagedSlot, 0, reserve)
	}
	w.frames = append(w.frames, f)

	return nil
}

// EndArray closes the current array frame and stages it as a value in the
// enclosing frame.
func (w *Writer) EndArray() error {
	if w.top().kind != frameArray {
		return errs.ErrNoContainerOpen
	}

	target, err := w.endContainer(format.TagArray)
	if err != nil {
		return err
	}

	return w.pushValueSlot(stagedSlot{kind: slotPointerLocal, target: target})
}

// BeginDictionary opens a new dict frame with no parent.
func (w *Writer) BeginDictionary(reserve int) error {
	if top := w.top(); top.kind == frameDict && top.expectKey {
		return errs.ErrKeyExpected
	} else if top.kind == frameRoot && len(top.slots) > 0 {
		return errs.ErrTooManyRootValues
	}

	f := newFrame(frameDict)
	if reserve > 0 {
		f.keys = make([]rawKeyLite, 0, reserve)
		f.keySlot = make([]stagedSlot, 0, reserve)
		f.valSlot = make([]stagedSlot, 0, reserve)
	}
	w.frames = append(w.frames, f)

	return nil
}

// BeginDictionaryWithParent opens a new dict frame that inherits from
// parent: keys not written in this frame resolve through parent at read
// time, and writing the same key again overrides it (WriteUndefinedKey, via
// a plain WriteKey + WriteNull-style tombstone, hides it).
func (w *Writer) BeginDictionaryWithParent(parent value.Value, reserve int) error {
	if err := w.BeginDictionary(reserve + 1); err != nil {
		return err
	}

	slot, err := w.resolveValueSlot(parent)
	if err != nil {
		return err
	}

	f := w.top()
	f.keys = append(f.keys, rawKeyLite{isInt: true, i: format.ParentKeySentinel})
	f.keySlot = append(f.keySlot, stagedSlot{kind: slotInline, inline: encodeShortInt(format.ParentKeySentinel)})
	f.valSlot = append(f.valSlot, slot)

	return nil
}

// WriteKey writes name as the key of the next dict pair. If the writer has
// a linked SharedKeys (see WithSharedKeys) and name is eligible, it is
// encoded as an integer key; otherwise it is written as a plain string.
func (w *Writer) WriteKey(name string) error {
	f := w.top()
	if f.kind != frameDict {
		return errs.ErrNoContainerOpen
	}
	if !f.expectKey {
		return errs.ErrValueExpected
	}

	if err := f.dup.Track(name); err != nil {
		return err
	}

	if w.sharedKeys != nil {
		if i, err := w.sharedKeys.EncodeAndAdd(name); err == nil {
			return w.pushKey(rawKeyLite{isInt: true, i: i}, stagedSlot{kind: slotInline, inline: encodeShortInt(i)})
		}
	}

	slot := w.stageEncoded(encodeStringLike(format.TagString, []byte(name)))

	return w.pushKey(rawKeyLite{s: name}, slot)
}

// WriteKeyInt writes i directly as an already-resolved SharedKeys integer
// key, bypassing both SharedKeys lookup and duplicate-name tracking (the
// caller, typically the mutable overlay re-emitting a source dict's keys,
// is responsible for i's uniqueness within this frame).
func (w *Writer) WriteKeyInt(i int32) error {
	f := w.top()
	if f.kind != frameDict {
		return errs.ErrNoContainerOpen
	}
	if !f.expectKey {
		return errs.ErrValueExpected
	}

	return w.pushKey(rawKeyLite{isInt: true, i: i}, stagedSlot{kind: slotInline, inline: encodeShortInt(i)})
}

func (w *Writer) pushKey(key rawKeyLite, slot stagedSlot) error {
	if slot.kind == slotInline && len(slot.inline) == 4 {
		w.top().forceWide = true
	}

	f := w.top()
	f.keys = append(f.keys, key)
	f.keySlot = append(f.keySlot, slot)
	f.valSlot = append(f.valSlot, stagedSlot{})
	f.expectKey = false

	return nil
}

// WriteUndefinedKey writes name as a tombstone: a key whose value is
// Special-undefined, hiding an inherited key of the same name in a
// BeginDictionaryWithParent frame.
func (w *Writer) WriteUndefinedKey(name string) error {
	if err := w.WriteKey(name); err != nil {
		return err
	}

	return w.writeUndefined()
}

// EndDictionary closes the current dict frame and stages it as a value in
// the enclosing frame.
func (w *Writer) EndDictionary() error {
	f := w.top()
	if f.kind != frameDict {
		return errs.ErrNoContainerOpen
	}
	if !f.expectKey {
		return errs.ErrValueExpected
	}

	target, err := w.endContainer(format.TagDict)
	if err != nil {
		return err
	}

	return w.pushValueSlot(stagedSlot{kind: slotPointerLocal, target: target})
}

// endContainer pops the current frame, packs it into the output buffer, and
// returns the absolute position its header was written at.
func (w *Writer) endContainer(tag format.Tag) (int, error) {
	f := w.frames[len(w.frames)-1]
	w.frames = w.frames[:len(w.frames)-1]

	if tag == format.TagDict {
		f.sortPairs()
	}

	count := len(f.slots)
	if tag == format.TagDict {
		count = f.pairCount()
	}

	headerPos := w.pos()
	provisional := encodeContainerHeader(tag, false, count)
	childrenStart := headerPos + len(provisional)

	wide := f.forceWide || containerNeedsWide(f, childrenStart, len(w.base))

	width := format.Narrow
	if wide {
		width = format.Wide
	}

	w.appendBytes(encodeContainerHeader(tag, wide, count))

	for i, slot := range f.slots {
		slotPos := childrenStart + i*int(width)
		w.appendBytes(encodeSlot(slot, slotPos, width, len(w.base)))
	}

	return headerPos, nil
}

func containerNeedsWide(f *frame, childrenStartNarrow, baseLen int) bool {
	const narrowMaxOffsetUnits = 0x3FFF

	for i, slot := range f.slots {
		var distance int

		switch slot.kind {
		case slotInline:
			continue
		case slotPointerExtern:
			distance = baseLen - slot.target
		default:
			slotPos := childrenStartNarrow + i*2
			distance = slotPos - slot.target
		}

		if distance/2 > narrowMaxOffsetUnits {
			return true
		}
	}

	return false
}

// Finish packs the root frame's single Value (emitting a trailer pointer to
// it unless WithoutTrailer was set) and returns the completed buffer. The
// Writer must not be used again afterward.
func (w *Writer) Finish() ([]byte, format.CompressionType, error) {
	if w.finished {
		return nil, format.CompressionNone, errs.ErrWriterFinished
	}

	if len(w.frames) != 1 || w.frames[0].kind != frameRoot {
		return nil, format.CompressionNone, errs.ErrUnclosedContainer
	}

	root := w.frames[0]
	if len(root.slots) == 0 {
		return nil, format.CompressionNone, fmt.Errorf("%w: nothing was written", errs.ErrInternal)
	}

	if w.trailer {
		slot := root.slots[0]
		trailerPos := w.pos()

		switch slot.kind {
		case slotInline:
			if len(slot.inline) == 2 {
				w.appendBytes(slot.inline)
			} else {
				target := w.pos()
				w.appendBytes(slot.inline)
				w.appendBytes(encodeLocalPointer(format.Narrow, trailerPos+4, target))
			}
		case slotPointerExtern:
			w.appendBytes(encodeExternPointer(format.Narrow, len(w.base), slot.target))
		default:
			w.appendBytes(encodeLocalPointer(format.Narrow, trailerPos, slot.target))
		}
	}

	out := append([]byte(nil), w.buf.Bytes()...)
	w.finished = true
	if w.owned {
		pool.PutOutputBuffer(w.buf)
		w.buf = nil
	}

	compressionType := format.CompressionNone
	if w.compressor != nil {
		compressed, err := w.compressor.Compress(out)
		if err != nil {
			return nil, format.CompressionNone, fmt.Errorf("writer: compress output: %w", err)
		}
		out = compressed
		compressionType = w.compressionType
	}

	return out, compressionType, nil
}
