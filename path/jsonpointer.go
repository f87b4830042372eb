package path

import (
	"strconv"
	"strings"

	"github.com/tagvalue/tvf/errs"
	"github.com/tagvalue/tvf/value"
)

// EvaluateJSONPointer evaluates an RFC 6901 JSON Pointer ("/seg/seg...")
// against root, returning the zero Value on any miss. The empty pointer
// refers to root itself. Segments are unescaped per RFC 6901 (`~1` -> `/`,
// then `~0` -> `~`); array segments must be an unsigned base-10 integer or
// the literal `-`, which this evaluator treats as a miss since it denotes a
// not-yet-existing append position with nothing to read.
func EvaluateJSONPointer(pointer string, root value.Value) (value.Value, error) {
	if pointer == "" {
		return root, nil
	}

	if pointer[0] != '/' {
		return value.Value{}, errs.ErrPathSyntax
	}

	cur := root

	for _, raw := range strings.Split(pointer[1:], "/") {
		if !cur.IsValid() {
			return value.Value{}, nil
		}

		seg := unescapeJSONPointerSegment(raw)

		if d := cur.AsDict(); d.IsValid() {
			cur = d.Get(seg)
			continue
		}

		if a := cur.AsArray(); a.IsValid() {
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 {
				return value.Value{}, nil
			}
			cur = a.Get(i)
			continue
		}

		return value.Value{}, nil
	}

	return cur, nil
}

func unescapeJSONPointerSegment(seg string) string {
	if !strings.Contains(seg, "~") {
		return seg
	}

	var b strings.Builder
	for i := 0; i < len(seg); i++ {
		if seg[i] == '~' && i+1 < len(seg) {
			switch seg[i+1] {
			case '0':
				b.WriteByte('~')
				i++
				continue
			case '1':
				b.WriteByte('/')
				i++
				continue
			}
		}
		b.WriteByte(seg[i])
	}

	return b.String()
}
