package value

import "github.com/tagvalue/tvf/format"

// readSlot decodes the child slot of width bytes at data[pos:pos+width],
// resolving a pointer if the slot holds one, and returns the Value it
// denotes. scope is propagated to the result so nested lookups (shared
// keys, further pointer extern resolution) keep working.
func readSlot(data []byte, pos int, width format.Width, scope *Scope) Value {
	if len(data) < pos+int(width) {
		return Value{}
	}

	first := data[pos]
	if first&0x80 == 0 {
		// Inline scalar: the slot itself is the Value's header.
		return Value{data: data, pos: pos, scope: scope}
	}

	return resolvePointer(data, pos, width, scope)
}

func resolvePointer(data []byte, pos int, width format.Width, scope *Scope) Value {
	var offsetUnits uint32
	var extern bool

	if width == format.Narrow {
		raw := uint16(data[pos])<<8 | uint16(data[pos+1])
		extern = raw&format.NarrowExternBit != 0
		offsetUnits = uint32(raw &^ (0x8000 | format.NarrowExternBit))
	} else {
		raw := uint32(data[pos])<<24 | uint32(data[pos+1])<<16 | uint32(data[pos+2])<<8 | uint32(data[pos+3])
		extern = raw&format.WideExternBit != 0
		offsetUnits = raw &^ (0x80000000 | format.WideExternBit)
	}

	offsetBytes := int(offsetUnits) * 2
	if offsetBytes == 0 {
		return Value{}
	}

	if extern {
		if scope == nil || scope.externBase == nil {
			return Value{}
		}

		target := len(scope.externBase) - offsetBytes
		if target < 0 {
			return Value{}
		}

		return Value{data: scope.externBase, pos: target, scope: scope}
	}

	target := pos - offsetBytes
	if target < 0 {
		return Value{}
	}

	return Value{data: data, pos: target, scope: scope}
}
