package promptform

type Field string

const (
	FieldSubject   Field = "subject"
	FieldTimePlace Field = "timePlace"
	FieldActionJob Field = "actionJob"

	FieldStyles        Field = "styles"
	FieldLighting      Field = "lighting"
	FieldEnvironment   Field = "environment"
	FieldPalette       Field = "palette"
	FieldCustomColor   Field = "customColor"
	FieldMood          Field = "mood"
	FieldQuality       Field = "quality"
	FieldAccelerators  Field = "accelerators"
	FieldNegativeWords Field = "negativeWords"
	FieldAspectRatio   Field = "aspectRatio"
	FieldCameraAngles  Field = "cameraAngles"
	FieldCameraLenses  Field = "cameraLenses"
)

type Category int

const (
	CategoryIdentity Category = iota
	CategoryStyle
	CategoryExcluded
)

func (c Category) String() string {
	switch c {
	case CategoryIdentity:
		return "identity"
	case CategoryStyle:
		return "style"
	case CategoryExcluded:
		return "excluded"
	default:
		return "unknown"
	}
}

type valueKind int

const (
	kindText valueKind = iota
	kindList
	kindColor
	kindRatio
)

type fieldDef struct {
	field    Field
	category Category
	kind     valueKind
}

// fieldTable is the only place that assigns a field to a category. Its order
// is the record order; filtering it by category gives the insertion order of
// each partition.
var fieldTable = []fieldDef{
	{field: FieldSubject, category: CategoryIdentity, kind: kindText},
	{field: FieldTimePlace, category: CategoryIdentity, kind: kindText},
	{field: FieldActionJob, category: CategoryIdentity, kind: kindText},
	{field: FieldStyles, category: CategoryStyle, kind: kindList},
	{field: FieldLighting, category: CategoryStyle, kind: kindList},
	{field: FieldEnvironment, category: CategoryExcluded, kind: kindText},
	{field: FieldPalette, category: CategoryStyle, kind: kindList},
	{field: FieldCustomColor, category: CategoryStyle, kind: kindColor},
	{field: FieldMood, category: CategoryStyle, kind: kindList},
	{field: FieldQuality, category: CategoryStyle, kind: kindList},
	{field: FieldAccelerators, category: CategoryStyle, kind: kindList},
	{field: FieldNegativeWords, category: CategoryExcluded, kind: kindText},
	{field: FieldAspectRatio, category: CategoryStyle, kind: kindRatio},
	{field: FieldCameraAngles, category: CategoryStyle, kind: kindList},
	{field: FieldCameraLenses, category: CategoryStyle, kind: kindList},
}

func lookup(field Field) (fieldDef, bool) {
	for _, def := range fieldTable {
		if def.field == field {
			return def, true
		}
	}
	return fieldDef{}, false
}

func Fields() []Field {
	out := make([]Field, 0, len(fieldTable))
	for _, def := range fieldTable {
		out = append(out, def.field)
	}
	return out
}

func FieldsIn(category Category) []Field {
	var out []Field
	for _, def := range fieldTable {
		if def.category == category {
			out = append(out, def.field)
		}
	}
	return out
}

func IdentityFields() []Field { return FieldsIn(CategoryIdentity) }
func StyleFields() []Field    { return FieldsIn(CategoryStyle) }
func ExcludedFields() []Field { return FieldsIn(CategoryExcluded) }

func CategoryOf(field Field) (Category, bool) {
	def, ok := lookup(field)
	return def.category, ok
}

func ParseField(name string) (Field, bool) {
	_, ok := lookup(Field(name))
	return Field(name), ok
}

// IsList reports whether the field holds an ordered, duplicate-free sequence.
func IsList(field Field) bool {
	def, ok := lookup(field)
	return ok && def.kind == kindList
}
