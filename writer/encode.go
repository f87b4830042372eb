package writer

import (
	"github.com/tagvalue/tvf/endian"
	"github.com/tagvalue/tvf/format"
	"github.com/tagvalue/tvf/internal/varint"
)

var nativeEngine = endian.GetLittleEndianEngine()

func padEven(b []byte) []byte {
	if len(b)%2 != 0 {
		b = append(b, 0)
	}

	return b
}

func encodeSpecial(s format.Special) []byte {
	return []byte{byte(format.TagSpecial)<<4 | byte(s)<<2, 0}
}

// encodeShortInt packs v, which must be in [-2048, 2047], into the 12-bit
// field of a ShortInt header.
func encodeShortInt(v int32) []byte {
	raw := uint16(int16(v)) & 0x0FFF

	return []byte{byte(format.TagShortInt)<<4 | byte(raw>>8), byte(raw)}
}

// minSignedBytes returns the fewest bytes, 1-8, whose sign-extended value
// round-trips to v exactly.
func minSignedBytes(v int64) int {
	for n := 1; n < 8; n++ {
		shift := uint(64 - 8*n)
		if int64(uint64(v)<<shift)>>shift == v {
			return n
		}
	}

	return 8
}

// minUnsignedBytes returns the fewest bytes, 1-8, that hold u without
// truncation.
func minUnsignedBytes(u uint64) int {
	for n := 1; n < 8; n++ {
		if u>>(8*uint(n)) == 0 {
			return n
		}
	}

	return 8
}

func encodeIntBytes(u uint64, byteCount int, unsigned bool) []byte {
	out := make([]byte, 1+byteCount)

	header := byte(format.TagInt)<<4 | byte(byteCount-1)
	if unsigned {
		header |= 0x08
	}
	out[0] = header

	for i := 0; i < byteCount; i++ {
		out[1+i] = byte(u >> (8 * uint(i)))
	}

	return out
}

// encodeSignedInt chooses ShortInt when v fits its 12-bit range, otherwise
// the narrowest Int encoding that round-trips v.
func encodeSignedInt(v int64) []byte {
	if v >= -2048 && v <= 2047 {
		return encodeShortInt(int32(v))
	}

	n := minSignedBytes(v)

	return encodeIntBytes(uint64(v), n, false)
}

// encodeUnsignedInt chooses ShortInt when u fits its non-negative range,
// otherwise the narrowest unsigned Int encoding.
func encodeUnsignedInt(u uint64) []byte {
	if u <= 2047 {
		return encodeShortInt(int32(u))
	}

	n := minUnsignedBytes(u)

	return encodeIntBytes(u, n, true)
}

func encodeFloat32(v float32) []byte {
	out := make([]byte, 5)
	out[0] = byte(format.TagFloat)<<4 | byte(format.FloatSize32)<<2
	endian.EncodeFloat32(nativeEngine, out[1:], v)

	return out
}

// encodeDouble chooses the FloatSize64As32 wire form when v round-trips
// exactly through a float32, saving 4 payload bytes; otherwise it stores the
// full 8-byte float64 payload.
func encodeDouble(v float64) []byte {
	if endian.FitsFloat32(v) {
		out := make([]byte, 5)
		out[0] = byte(format.TagFloat)<<4 | byte(format.FloatSize64As32)<<2
		endian.EncodeFloat32(nativeEngine, out[1:], float32(v))

		return out
	}

	out := make([]byte, 9)
	out[0] = byte(format.TagFloat)<<4 | byte(format.FloatSize64)<<2
	endian.EncodeFloat64(nativeEngine, out[1:], v)

	return out
}

func encodeStringLike(tag format.Tag, payload []byte) []byte {
	n := len(payload)

	var out []byte
	if n < 0x0F {
		out = append(out, byte(tag)<<4|byte(n))
	} else {
		out = append(out, byte(tag)<<4|0x0F)
		out = varint.Append(out, uint64(n))
	}

	return append(out, payload...)
}

// encodeContainerHeader builds the 2-byte (or varint-extended) tag/count
// header shared by Array and Dict. count is the number of elements the tag
// denotes: array elements for an Array, key/value pairs (not slots) for a
// Dict — a Dict's children occupy 2*count slots. The header's length does
// not depend on wide, only its wide-flag bit does, so callers can compute
// where children start before the final width decision is made.
func encodeContainerHeader(tag format.Tag, wide bool, count int) []byte {
	var composite uint16
	if wide {
		composite |= format.ArrayWideChildBit
	}

	var out []byte
	if count < format.ArrayCountOverflow {
		composite |= uint16(count)
		out = []byte{byte(tag)<<4 | byte(composite>>8), byte(composite)}
	} else {
		composite |= format.ArrayCountMask
		out = []byte{byte(tag)<<4 | byte(composite>>8), byte(composite)}
		out = varint.Append(out, uint64(count-format.ArrayCountOverflow))
	}

	return padEven(out)
}

func encodeLocalPointer(width format.Width, slotPos, target int) []byte {
	offsetUnits := uint32((slotPos - target) / 2)
	if width == format.Narrow {
		raw := uint16(0x8000) | uint16(offsetUnits)
		return []byte{byte(raw >> 8), byte(raw)}
	}

	raw := uint32(0x80000000) | offsetUnits

	return []byte{byte(raw >> 24), byte(raw >> 16), byte(raw >> 8), byte(raw)}
}

func encodeExternPointer(width format.Width, baseLen, target int) []byte {
	offsetUnits := uint32((baseLen - target) / 2)
	if width == format.Narrow {
		raw := uint16(0x8000) | uint16(format.NarrowExternBit) | uint16(offsetUnits)
		return []byte{byte(raw >> 8), byte(raw)}
	}

	raw := uint32(0x80000000) | uint32(format.WideExternBit) | offsetUnits

	return []byte{byte(raw >> 24), byte(raw >> 16), byte(raw >> 8), byte(raw)}
}

func encodeSlot(slot stagedSlot, slotPos int, width format.Width, baseLen int) []byte {
	switch slot.kind {
	case slotPointerLocal:
		return encodeLocalPointer(width, slotPos, slot.target)
	case slotPointerExtern:
		return encodeExternPointer(width, baseLen, slot.target)
	default:
		out := make([]byte, width)
		copy(out, slot.inline)

		return out
	}
}
