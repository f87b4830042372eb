// Package path compiles and evaluates key/index specifiers against a
// decoded Value tree: a dotted-and-bracketed mini-grammar resembling a
// restricted subset of JavaScript property access, plus a separate
// RFC-6901 JSON-Pointer evaluator for interop with the wider JSON world.
package path

import (
	"strconv"
	"strings"

	"github.com/tagvalue/tvf/errs"
	"github.com/tagvalue/tvf/value"
)

// componentKind distinguishes a dict-key component from an array-index one.
type componentKind uint8

const (
	componentKey componentKind = iota
	componentIndex
)

// Component is one step of a compiled Path: a dict key or an array index.
// Key components carry a *value.Key so repeated evaluation against dicts in
// the same scope reuses its cached SharedKeys lookup.
type Component struct {
	kind componentKind
	key  *value.Key
	name string
	idx  int
}

// Path is an ordered, compiled sequence of Components. The zero Path
// evaluates to its root unchanged (empty path).
type Path struct {
	components []Component
}

// Compile parses specifier into a Path. Grammar:
//
//	path := ('$')? ( '.' key | '[' index ']' | key )*
//	key  := char+ with '.', '[', ']', '\' backslash-escaped
//
// A leading '$' is accepted and discarded (it marks the root, matching the
// common JSONPath-adjacent convention); a bare leading key needs neither a
// dot nor a dollar, so "foo.bar" and "$.foo.bar" compile identically.
func Compile(specifier string) (*Path, error) {
	components, err := parseSpecifier(specifier)
	if err != nil {
		return nil, err
	}

	return &Path{components: components}, nil
}

func parseSpecifier(specifier string) ([]Component, error) {
	s := specifier
	if strings.HasPrefix(s, "$") {
		s = s[1:]
	}

	var components []Component
	i := 0

	for i < len(s) {
		switch s[i] {
		case '.':
			i++
			key, n, err := parseKey(s[i:])
			if err != nil {
				return nil, err
			}
			if key == "" {
				return nil, errs.ErrPathSyntax
			}
			components = append(components, keyComponent(key))
			i += n

		case '[':
			end := strings.IndexByte(s[i:], ']')
			if end < 0 {
				return nil, errs.ErrPathSyntax
			}
			digits := s[i+1 : i+end]
			idx, err := strconv.Atoi(digits)
			if err != nil {
				return nil, errs.ErrPathSyntax
			}
			components = append(components, indexComponent(idx))
			i += end + 1

		default:
			key, n, err := parseKey(s[i:])
			if err != nil {
				return nil, err
			}
			if key == "" {
				return nil, errs.ErrPathSyntax
			}
			components = append(components, keyComponent(key))
			i += n
		}
	}

	return components, nil
}

// parseKey reads a bare key from the start of s, stopping (without
// consuming) at an unescaped '.' or '[', and un-escaping '\.', '\[', '\]'
// and '\\'. It returns the decoded key and the number of source bytes
// consumed.
func parseKey(s string) (string, int, error) {
	var b strings.Builder

	i := 0
	for i < len(s) {
		c := s[i]

		switch c {
		case '.', '[':
			return b.String(), i, nil
		case '\\':
			if i+1 >= len(s) {
				return "", 0, errs.ErrPathSyntax
			}
			b.WriteByte(s[i+1])
			i += 2
		default:
			b.WriteByte(c)
			i++
		}
	}

	return b.String(), i, nil
}

func keyComponent(name string) Component {
	return Component{kind: componentKey, key: value.NewKey(name), name: name}
}

func indexComponent(idx int) Component {
	return Component{kind: componentIndex, idx: idx}
}

// Evaluate walks root through p's components left-to-right, returning the
// zero Value on any miss (wrong container kind, out-of-range index, or
// absent key) rather than an error — a path evaluation is a lookup, not an
// operation with preconditions to violate.
func (p *Path) Evaluate(root value.Value) value.Value {
	cur := root

	for _, c := range p.components {
		if !cur.IsValid() {
			return value.Value{}
		}

		switch c.kind {
		case componentKey:
			d := cur.AsDict()
			if !d.IsValid() {
				return value.Value{}
			}
			cur = c.key.Get(d)

		case componentIndex:
			a := cur.AsArray()
			if !a.IsValid() {
				return value.Value{}
			}
			cur = a.Get(resolveIndex(c.idx, a.Count()))
		}
	}

	return cur
}

// resolveIndex turns a possibly-negative index (counting from the end, per
// §4.6) into a non-negative one for Array.Get, which rejects negatives
// outright.
func resolveIndex(idx, count int) int {
	if idx < 0 {
		return count + idx
	}

	return idx
}

// Eval compiles specifier and evaluates it against root in one call, for
// callers that only need a single lookup and don't want to keep the
// compiled Path around.
func Eval(specifier string, root value.Value) (value.Value, error) {
	p, err := Compile(specifier)
	if err != nil {
		return value.Value{}, err
	}

	return p.Evaluate(root), nil
}
