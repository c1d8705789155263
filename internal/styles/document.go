package styles

import (
	"bytes"
	"encoding/json"
	"fmt"

	"pro-prompt-builder/internal/promptform"
)

const FileName = "styles.json"

type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "style document is not a JSON object: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

type SkippedField struct {
	Field promptform.Field
	Err   error
}

// ImportReport lists what a merge did besides the plain overwrite.
type ImportReport struct {
	Applied []promptform.Field
	Skipped []SkippedField
	Ignored []string
}

// Export serializes the style fields of r as one compact JSON object.
func Export(r promptform.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(promptform.Partition(r).Style); err != nil {
		return nil, fmt.Errorf("encode styles: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Import merges raw onto a copy of r. Identity and excluded fields of the
// result always keep their values from r, even when raw names them.
func Import(r promptform.Record, raw []byte) (promptform.Record, ImportReport, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(raw), &doc); err != nil {
		return r, ImportReport{}, &ParseError{Err: err}
	}
	if doc == nil {
		return r, ImportReport{}, &ParseError{Err: fmt.Errorf("document is null")}
	}

	var report ImportReport
	merged := r.Clone()

	for _, field := range promptform.Fields() {
		value, ok := doc[string(field)]
		if !ok {
			continue
		}
		var decoded any
		if err := json.Unmarshal(value, &decoded); err != nil {
			report.Skipped = append(report.Skipped, SkippedField{Field: field, Err: err})
			continue
		}
		if err := merged.Update(field, decoded); err != nil {
			report.Skipped = append(report.Skipped, SkippedField{Field: field, Err: err})
			continue
		}
		if c, _ := promptform.CategoryOf(field); c == promptform.CategoryStyle {
			report.Applied = append(report.Applied, field)
		}
	}

	for key := range doc {
		if _, known := promptform.ParseField(key); !known {
			report.Ignored = append(report.Ignored, key)
		}
	}

	prior := promptform.Partition(r)
	for _, m := range []promptform.FieldMap{prior.Identity, prior.Excluded} {
		for _, e := range m {
			if err := merged.Update(e.Field, e.Value); err != nil {
				return r, ImportReport{}, fmt.Errorf("restore %s: %w", e.Field, err)
			}
		}
	}

	return merged, report, nil
}
