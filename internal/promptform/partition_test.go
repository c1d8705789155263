package promptform

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }

func filledRecord(t *testing.T) Record {
	t.Helper()
	r := New()
	require.NoError(t, r.Update(FieldSubject, "گربه فضانورد"))
	require.NoError(t, r.Update(FieldTimePlace, "مریخ هنگام غروب"))
	require.NoError(t, r.Update(FieldActionJob, "در حال تعمیر سفینه"))
	require.NoError(t, r.Update(FieldEnvironment, "طوفان شن"))
	require.NoError(t, r.Update(FieldNegativeWords, "blur, text"))
	require.NoError(t, r.Update(FieldStyles, []string{"سورئالیسم"}))
	require.NoError(t, r.Update(FieldPalette, []string{"رنگ گرم", "نئونی"}))
	require.NoError(t, r.Update(FieldCustomColor, "#ff8800"))
	require.NoError(t, r.Update(FieldAspectRatio, "21:9"))
	require.NoError(t, r.Update(FieldCameraLenses, []string{"35mm"}))
	return r
}

func TestPartitionCoversEveryFieldOnce(t *testing.T) {
	for _, r := range []Record{New(), filledRecord(t)} {
		p := Partition(r)

		seen := map[Field]int{}
		for _, m := range []FieldMap{p.Identity, p.Style, p.Excluded} {
			for _, f := range m.Fields() {
				seen[f]++
			}
		}

		assert.Len(t, seen, len(Fields()))
		for _, f := range Fields() {
			assert.Equal(t, 1, seen[f], f)
		}
	}
}

func TestPartitionCategories(t *testing.T) {
	p := Partition(filledRecord(t))

	assert.Equal(t, []Field{FieldSubject, FieldTimePlace, FieldActionJob}, p.Identity.Fields())
	assert.Equal(t, []Field{FieldEnvironment, FieldNegativeWords}, p.Excluded.Fields())
	assert.Equal(t, []Field{
		FieldStyles, FieldLighting, FieldPalette, FieldCustomColor, FieldMood,
		FieldQuality, FieldAccelerators, FieldAspectRatio, FieldCameraAngles, FieldCameraLenses,
	}, p.Style.Fields())

	v, ok := p.Style.Get(FieldPalette)
	require.True(t, ok)
	assert.Equal(t, []string{"رنگ گرم", "نئونی"}, v)
	assert.False(t, p.Style.Has(FieldSubject))
}

func TestFieldMapMarshalJSONDoesNotEscapeHTML(t *testing.T) {
	m := FieldMap{
		{Field: FieldStyles, Value: []string{"a<b>&c"}},
		{Field: FieldCustomColor, Value: "#000000"},
	}
	raw, err := m.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"styles":["a<b>&c"],"customColor":"#000000"}`, string(raw))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		place   string
		action  string
		missing []Field
	}{
		{name: "all set", subject: "s", place: "p", action: "a"},
		{name: "blank subject", subject: "", place: "x", action: "y", missing: []Field{FieldSubject}},
		{name: "whitespace only", subject: "s", place: "  \t", action: "\n", missing: []Field{FieldTimePlace, FieldActionJob}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			require.NoError(t, r.Update(FieldSubject, tt.subject))
			require.NoError(t, r.Update(FieldTimePlace, tt.place))
			require.NoError(t, r.Update(FieldActionJob, tt.action))

			err := Validate(r)
			if tt.missing == nil {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.missing, verr.Missing)
		})
	}
}

func TestBuildInstructionOrder(t *testing.T) {
	r := filledRecord(t)
	require.NoError(t, r.Update(FieldLighting, []string{"سینماتیک"}))
	require.NoError(t, r.Update(FieldCameraAngles, []string{"POV"}))

	out := BuildInstruction(r)

	markers := []string{
		"Subject: گربه فضانورد",
		"Action/Context: در حال تعمیر سفینه",
		"Time/Location: مریخ هنگام غروب",
		"Environment: طوفان شن",
		"Styles: سورئالیسم",
		"Lighting: سینماتیک",
		"Colors: رنگ گرم, نئونی (Accent hex: #ff8800)",
		"Camera: POV using 35mm lens",
		"--ar 21:9",
		"Negative prompts (avoid): blur, text",
	}
	last := -1
	for _, m := range markers {
		idx := strings.Index(out, m)
		require.GreaterOrEqual(t, idx, 0, m)
		assert.Greater(t, idx, last, m)
		last = idx
	}
	assert.Equal(t, out, BuildInstruction(r))
}

func TestBuildInstructionOmitsEmptyOptionalParts(t *testing.T) {
	r := New()
	require.NoError(t, r.Update(FieldSubject, "s"))
	require.NoError(t, r.Update(FieldTimePlace, "p"))
	require.NoError(t, r.Update(FieldActionJob, "a"))

	out := BuildInstruction(r)

	assert.Contains(t, out, "--ar 16:9")
	assert.NotContains(t, out, "--no")
	assert.NotContains(t, out, "Negative prompts")
	assert.NotContains(t, out, "Accent hex")
	assert.NotContains(t, out, "Environment:")
}

func TestCatalog(t *testing.T) {
	assert.Len(t, AspectRatios(), 11)
	assert.True(t, IsAspectRatio("16:9"))
	assert.Contains(t, Options(FieldPalette), "رنگ گرم")
	assert.Equal(t, AspectRatios(), Options(FieldAspectRatio))

	for _, opt := range SelectableFields() {
		c, ok := CategoryOf(opt.Field)
		require.True(t, ok)
		assert.Equal(t, CategoryStyle, c)
		assert.NotEmpty(t, Options(opt.Field), opt.Field)
	}
}
