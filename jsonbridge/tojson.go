package jsonbridge

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/tagvalue/tvf/errs"
	"github.com/tagvalue/tvf/format"
	"github.com/tagvalue/tvf/value"
)

// ToJSON writes v to w as compact JSON text: object keys come out in the
// dict's own iteration order (sorted, per the value package's merge rules),
// scalars are encoded via encoding/json.Marshal so string escaping and
// number formatting match the standard library's own JSON output exactly.
// There is no whitespace/indentation option, matching this bridge's scope
// as a value-level translation rather than a general-purpose JSON
// formatter. Data (binary) values have no JSON representation and are
// reported as an error.
func ToJSON(v value.Value, w io.Writer) error {
	return writeValue(w, v)
}

func writeValue(w io.Writer, v value.Value) error {
	if !v.IsValid() {
		return writeLiteral(w, "null")
	}

	switch v.Type() {
	case format.TypeNull:
		return writeLiteral(w, "null")
	case format.TypeBool:
		return writeScalar(w, v.AsBool())
	case format.TypeNumber:
		return writeNumber(w, v)
	case format.TypeString:
		return writeScalar(w, v.AsString())
	case format.TypeData:
		return fmt.Errorf("%w: binary Data values have no JSON representation", errs.ErrJSON)
	case format.TypeArray:
		return writeArrayJSON(w, v.AsArray())
	case format.TypeDict:
		return writeDictJSON(w, v.AsDict())
	default:
		return fmt.Errorf("%w: unrecognized value type", errs.ErrJSON)
	}
}

func writeLiteral(w io.Writer, s string) error {
	_, err := io.WriteString(w, s)

	return err
}

func writeScalar(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrJSON, err)
	}

	_, err = w.Write(b)

	return err
}

func writeNumber(w io.Writer, v value.Value) error {
	if v.IsFloat() {
		return writeScalar(w, v.AsDouble())
	}

	return writeScalar(w, v.AsInt())
}

func writeArrayJSON(w io.Writer, a value.Array) error {
	if err := writeLiteral(w, "["); err != nil {
		return err
	}

	first := true
	for _, elem := range a.All() {
		if !first {
			if err := writeLiteral(w, ","); err != nil {
				return err
			}
		}
		first = false

		if err := writeValue(w, elem); err != nil {
			return err
		}
	}

	return writeLiteral(w, "]")
}

func writeDictJSON(w io.Writer, d value.Dict) error {
	if err := writeLiteral(w, "{"); err != nil {
		return err
	}

	first := true
	for k, v := range d.All() {
		if !first {
			if err := writeLiteral(w, ","); err != nil {
				return err
			}
		}
		first = false

		if err := writeScalar(w, k); err != nil {
			return err
		}
		if err := writeLiteral(w, ":"); err != nil {
			return err
		}
		if err := writeValue(w, v); err != nil {
			return err
		}
	}

	return writeLiteral(w, "}")
}
