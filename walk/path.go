package walk

import (
	"strconv"
	"strings"
)

// Step is one level of a traversal Path: either a dict key or an array
// index.
type Step struct {
	key   string
	isKey bool
	index int
}

// Path is the sequence of steps from the traversal root down to a
// particular visited Value. The empty Path refers to the root itself.
type Path []Step

func appendKeyStep(p Path, key string) Path {
	next := make(Path, len(p)+1)
	copy(next, p)
	next[len(p)] = Step{key: key, isKey: true}

	return next
}

func appendIndexStep(p Path, index int) Path {
	next := make(Path, len(p)+1)
	copy(next, p)
	next[len(p)] = Step{index: index}

	return next
}

// String renders p as a JavaScript-like property-access path, e.g.
// ".foo[3].bar". Keys containing '.', '[', ']' or '\' are backslash-escaped,
// the inverse of the grammar the path package's Compile accepts.
func (p Path) String() string {
	var b strings.Builder

	for _, s := range p {
		if s.isKey {
			b.WriteByte('.')
			writeEscapedKey(&b, s.key)
		} else {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(s.index))
			b.WriteByte(']')
		}
	}

	return b.String()
}

func writeEscapedKey(b *strings.Builder, key string) {
	for i := 0; i < len(key); i++ {
		switch key[i] {
		case '.', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteByte(key[i])
	}
}

// Pointer renders p as an RFC-6901 JSON Pointer, e.g. "/foo/3/bar". Keys are
// escaped per RFC 6901 ('~' -> "~0", '/' -> "~1").
func (p Path) Pointer() string {
	var b strings.Builder

	for _, s := range p {
		b.WriteByte('/')
		if s.isKey {
			writeEscapedPointerSegment(&b, s.key)
		} else {
			b.WriteString(strconv.Itoa(s.index))
		}
	}

	return b.String()
}

func writeEscapedPointerSegment(b *strings.Builder, seg string) {
	for i := 0; i < len(seg); i++ {
		switch seg[i] {
		case '~':
			b.WriteString("~0")
		case '/':
			b.WriteString("~1")
		default:
			b.WriteByte(seg[i])
		}
	}
}
