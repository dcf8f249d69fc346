package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/tidwall/pretty"
)

// writeJSON prints v as indented JSON. HTML characters are kept verbatim.
func writeJSON(w io.Writer, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	if _, err := w.Write(pretty.Pretty(buf.Bytes())); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
