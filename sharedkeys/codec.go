package sharedkeys

import (
	"github.com/tagvalue/tvf/format"
	"github.com/tagvalue/tvf/internal/varint"
	"github.com/tagvalue/tvf/value"
)

// encodeStringArray serializes strs as a TVF array of String Values, decodable
// by value.FromData. It is a purpose-built, minimal encoder for this one
// fixed shape (a flat array of short strings) rather than a use of the
// general writer package; it depends only on format and internal/varint, so
// sharedkeys persistence does not import the writer package. Every element
// is written as a pointer slot (never inlined) to keep the layout simple.
func encodeStringArray(strs []string) []byte {
	var out []byte

	offsets := make([]int, len(strs))

	for i, s := range strs {
		offsets[i] = len(out)
		out = appendStringValue(out, s)
	}

	arrayPos := len(out)
	out = appendArrayHeader(out, len(strs))
	slotsStart := len(out)

	for i, off := range offsets {
		slotPos := slotsStart + i*4
		out = appendWidePointer(out, slotPos, off)
	}

	trailerPos := len(out)
	out = appendNarrowPointer(out, trailerPos, arrayPos)

	return out
}

func appendStringValue(out []byte, s string) []byte {
	payload := []byte(s)

	header := byte(format.TagString) << 4
	if len(payload) < 0x0F {
		out = append(out, header|byte(len(payload)))
	} else {
		out = append(out, header|0x0F)
		out = varint.Append(out, uint64(len(payload)))
	}

	out = append(out, payload...)
	if len(out)%2 != 0 {
		out = append(out, 0)
	}

	return out
}

func appendArrayHeader(out []byte, count int) []byte {
	tagWide := byte(format.TagArray)<<4 | 0x08

	if count < format.ArrayCountOverflow {
		return append(out, tagWide|byte((count>>8)&0x07), byte(count&0xFF))
	}

	out = append(out, tagWide|0x07, 0xFF)
	out = varint.Append(out, uint64(count-format.ArrayCountOverflow))

	if len(out)%2 != 0 {
		out = append(out, 0)
	}

	return out
}

// appendWidePointer appends a 4-byte pointer slot at slotPos referring back
// to targetPos.
func appendWidePointer(out []byte, slotPos, targetPos int) []byte {
	offsetUnits := uint32((slotPos - targetPos) / 2)
	raw := 0x80000000 | offsetUnits

	return append(out, byte(raw>>24), byte(raw>>16), byte(raw>>8), byte(raw))
}

// appendNarrowPointer appends a 2-byte pointer slot at slotPos referring back
// to targetPos.
func appendNarrowPointer(out []byte, slotPos, targetPos int) []byte {
	offsetUnits := uint16((slotPos - targetPos) / 2)
	raw := uint16(0x8000) | offsetUnits

	return append(out, byte(raw>>8), byte(raw))
}

// decodeStringArray is the inverse of encodeStringArray, tolerant of any
// conformant TVF array of strings (not just ones this package produced).
func decodeStringArray(data []byte) ([]string, bool) {
	root := value.FromData(data)
	if !root.IsValid() {
		return nil, false
	}

	arr := root.AsArray()
	if !arr.IsValid() {
		return nil, false
	}

	out := make([]string, 0, arr.Count())
	for _, v := range arr.All() {
		if v.Type() != format.TypeString {
			return nil, false
		}

		out = append(out, v.AsString())
	}

	return out, true
}
