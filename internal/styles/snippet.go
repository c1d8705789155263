package styles

import (
	"bytes"
	"encoding/json"
	"fmt"

	"pro-prompt-builder/internal/promptform"
)

const snippetVar = "promptStyles"

// Snippet renders the exported style document as a JavaScript constant.
func Snippet(r promptform.Record) (string, error) {
	doc, err := Export(r)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, doc, "", "  "); err != nil {
		return "", fmt.Errorf("indent styles: %w", err)
	}
	return fmt.Sprintf("const %s = %s;", snippetVar, buf.String()), nil
}
