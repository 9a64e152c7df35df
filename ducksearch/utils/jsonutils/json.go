package jsonutils

import (
	"bytes"
	"encoding/json"
	"io"
)

// Encode writes v as two-space indented JSON followed by a newline. Unlike
// json.Marshal it leaves <, > and & alone, so URLs and snippets stay readable.
func Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Pretty is Encode into a byte slice.
func Pretty(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
