// Package jsonbridge translates between JSON text and the tagged value
// format at the value level: FromJSON drives encoding/json's own tokenizer
// and replays its tokens as writer calls; ToJSON walks a decoded Value and
// emits compact JSON text. Neither direction implements a JSON parser or
// formatter of its own — both ride on encoding/json, per this module's
// stance that JSON tokenizing and text formatting are someone else's job.
package jsonbridge

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/tagvalue/tvf/errs"
	"github.com/tagvalue/tvf/writer"
)

// FromJSON reads one JSON value from r using json.Decoder's token stream
// and replays it as writer calls against w: objects become
// BeginDictionary/WriteKey/EndDictionary, arrays become BeginArray/
// EndArray, and scalars become the matching Write* call. json.Number is
// requested from the decoder so integers that fit in int64 round-trip as
// WriteInt rather than losing precision through float64; integers outside
// the int64 range, including large unsigned ones, are written as float64.
func FromJSON(r io.Reader, w *writer.Writer) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrJSON, err)
	}

	if err := writeToken(dec, w, tok); err != nil {
		return err
	}

	return nil
}

// writeToken writes tok (and, if tok opens a container, every token up to
// and including its matching close) to w.
func writeToken(dec *json.Decoder, w *writer.Writer, tok json.Token) error {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return writeObject(dec, w)
		case '[':
			return writeArray(dec, w)
		default:
			return fmt.Errorf("%w: unexpected closing delimiter %q", errs.ErrJSON, t)
		}

	case nil:
		return w.WriteNull()

	case bool:
		return w.WriteBool(t)

	case string:
		return w.WriteString(t)

	case json.Number:
		return writeNumber(w, t)

	default:
		return fmt.Errorf("%w: unsupported token type %T", errs.ErrJSON, tok)
	}
}

func writeObject(dec *json.Decoder, w *writer.Writer) error {
	if err := w.BeginDictionary(0); err != nil {
		return err
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrJSON, err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("%w: object key is not a string", errs.ErrJSON)
		}
		if err := w.WriteKey(key); err != nil {
			return err
		}

		valTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrJSON, err)
		}
		if err := writeToken(dec, w, valTok); err != nil {
			return err
		}
	}

	// Consume the closing '}'.
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrJSON, err)
	}

	return w.EndDictionary()
}

func writeArray(dec *json.Decoder, w *writer.Writer) error {
	if err := w.BeginArray(0); err != nil {
		return err
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrJSON, err)
		}
		if err := writeToken(dec, w, tok); err != nil {
			return err
		}
	}

	// Consume the closing ']'.
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrJSON, err)
	}

	return w.EndArray()
}

func writeNumber(w *writer.Writer, n json.Number) error {
	if i, err := n.Int64(); err == nil {
		return w.WriteInt(i)
	}

	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("%w: malformed number %q", errs.ErrJSON, n.String())
	}

	return w.WriteDouble(f)
}
