package styles

import (
	"encoding/json"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pro-prompt-builder/internal/promptform"
)

var recordCmp = cmp.AllowUnexported(promptform.Record{})

func sampleRecord(t *testing.T) promptform.Record {
	t.Helper()
	r := promptform.New()
	require.NoError(t, r.Update(promptform.FieldSubject, "original"))
	require.NoError(t, r.Update(promptform.FieldTimePlace, "تهران قدیم"))
	require.NoError(t, r.Update(promptform.FieldActionJob, "قدم زدن"))
	require.NoError(t, r.Update(promptform.FieldEnvironment, "کوچه باریک"))
	require.NoError(t, r.Update(promptform.FieldNegativeWords, "text, watermark"))
	require.NoError(t, r.Update(promptform.FieldStyles, []string{"مینیاتور", "رئالیسم"}))
	require.NoError(t, r.Update(promptform.FieldPalette, []string{"رنگ سرد"}))
	require.NoError(t, r.Update(promptform.FieldCustomColor, "#112233"))
	require.NoError(t, r.Update(promptform.FieldAspectRatio, "4:5"))
	require.NoError(t, r.Update(promptform.FieldCameraAngles, []string{"Dutch Angle"}))
	return r
}

func topLevelKeys(t *testing.T, raw []byte) []string {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	_, err := dec.Token()
	require.NoError(t, err)
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		require.NoError(t, err)
		keys = append(keys, tok.(string))
		var skip json.RawMessage
		require.NoError(t, dec.Decode(&skip))
	}
	return keys
}

func fieldNames(fields []promptform.Field) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, string(f))
	}
	return out
}

func TestExportHasOnlyStyleFields(t *testing.T) {
	raw, err := Export(sampleRecord(t))
	require.NoError(t, err)

	assert.Equal(t, fieldNames(promptform.StyleFields()), topLevelKeys(t, raw))
	assert.NotContains(t, string(raw), "original")
	assert.NotContains(t, string(raw), "watermark")
	assert.Contains(t, string(raw), `"palette":["رنگ سرد"]`)
}

func TestExportDefaults(t *testing.T) {
	raw, err := Export(promptform.New())
	require.NoError(t, err)
	assert.Equal(t,
		`{"styles":[],"lighting":[],"palette":[],"customColor":"#000000","mood":[],"quality":[],"accelerators":[],"aspectRatio":"16:9","cameraAngles":[],"cameraLenses":[]}`,
		string(raw))
}

func TestImportRoundTrip(t *testing.T) {
	r := sampleRecord(t)
	raw, err := Export(r)
	require.NoError(t, err)

	merged, report, err := Import(r, raw)
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(r, merged, recordCmp))
	assert.Empty(t, report.Skipped)
	assert.Equal(t, promptform.StyleFields(), report.Applied)
}

func TestImportOntoAnotherRecordKeepsItsIdentity(t *testing.T) {
	src := sampleRecord(t)
	raw, err := Export(src)
	require.NoError(t, err)

	dst := promptform.New()
	require.NoError(t, dst.Update(promptform.FieldSubject, "دیگری"))
	require.NoError(t, dst.Update(promptform.FieldEnvironment, "جنگل"))

	merged, _, err := Import(dst, raw)
	require.NoError(t, err)

	assert.Equal(t, "دیگری", merged.Subject())
	assert.Equal(t, "جنگل", merged.Environment())
	assert.Equal(t, src.List(promptform.FieldStyles), merged.List(promptform.FieldStyles))
	assert.Equal(t, "4:5", merged.AspectRatio())
}

func TestImportRefusesIdentityAndExcludedKeys(t *testing.T) {
	r := sampleRecord(t)

	merged, report, err := Import(r, []byte(`{"subject": "hacked", "environment": "leak", "negativeWords": "x", "palette": ["رنگ گرم"]}`))
	require.NoError(t, err)

	assert.Equal(t, "original", merged.Subject())
	assert.Equal(t, "کوچه باریک", merged.Environment())
	assert.Equal(t, "text, watermark", merged.NegativeWords())
	assert.Equal(t, []string{"رنگ گرم"}, merged.List(promptform.FieldPalette))
	assert.Equal(t, []promptform.Field{promptform.FieldPalette}, report.Applied)
	assert.Equal(t, []string{"مینیاتور", "رئالیسم"}, merged.List(promptform.FieldStyles))
}

func TestImportMalformedLeavesRecordUnchanged(t *testing.T) {
	for _, raw := range []string{`{not json`, ``, `null`, `[]`, `"styles"`, `42`} {
		t.Run(raw, func(t *testing.T) {
			r := sampleRecord(t)
			merged, _, err := Import(r, []byte(raw))

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Empty(t, cmp.Diff(r, merged, recordCmp))
		})
	}
}

func TestImportEmptyObjectIsNoop(t *testing.T) {
	r := sampleRecord(t)
	merged, report, err := Import(r, []byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(r, merged, recordCmp))
	assert.Empty(t, report.Applied)
}

func TestImportIgnoresUnknownAndSkipsMisshapenValues(t *testing.T) {
	r := sampleRecord(t)
	merged, report, err := Import(r, []byte(`{"seed": 7, "mood": "شاد", "aspectRatio": "99:1", "quality": ["4K", "4K", "8K"]}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"seed"}, report.Ignored)
	require.Len(t, report.Skipped, 2)
	assert.Equal(t, promptform.FieldMood, report.Skipped[0].Field)
	assert.Equal(t, promptform.FieldAspectRatio, report.Skipped[1].Field)

	assert.Empty(t, merged.List(promptform.FieldMood))
	assert.Equal(t, "4:5", merged.AspectRatio())
	assert.Equal(t, []string{"4K", "8K"}, merged.List(promptform.FieldQuality))
}

func TestImportDoesNotAliasSourceLists(t *testing.T) {
	r := sampleRecord(t)
	merged, _, err := Import(r, []byte(`{}`))
	require.NoError(t, err)

	require.NoError(t, merged.Select(promptform.FieldStyles, "مانگا"))
	assert.Equal(t, []string{"مینیاتور", "رئالیسم"}, r.List(promptform.FieldStyles))
}

func TestSnippetMatchesExport(t *testing.T) {
	r := sampleRecord(t)

	snippet, err := Snippet(r)
	require.NoError(t, err)
	raw, err := Export(r)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(snippet, "const promptStyles = {\n"))
	require.True(t, strings.HasSuffix(snippet, "\n};"))

	body := strings.TrimSuffix(strings.TrimPrefix(snippet, "const promptStyles = "), ";")
	assert.Equal(t, topLevelKeys(t, raw), topLevelKeys(t, []byte(body)))

	var fromSnippet, fromExport map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &fromSnippet))
	require.NoError(t, json.Unmarshal(raw, &fromExport))
	assert.Equal(t, fromExport, fromSnippet)

	assert.Regexp(t, regexp.MustCompile(`\n  "customColor": "#112233",\n`), snippet)
}
