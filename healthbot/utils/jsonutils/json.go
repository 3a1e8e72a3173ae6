package jsonutils

import (
	"encoding/json"
	"fmt"
	"io"
)

// Print writes v as indented JSON followed by a newline. A nil slice is
// printed as [] so scripts can always iterate list output.
func Print(w io.Writer, v any) error {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	if string(bytes) == "null" {
		bytes = []byte("[]")
	}
	_, err = fmt.Fprintln(w, string(bytes))
	return err
}
