package promptform

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	DefaultCustomColor = "#000000"
	DefaultAspectRatio = "16:9"
)

var (
	ErrUnknownField    = errors.New("unknown field")
	ErrFieldType       = errors.New("wrong value type for field")
	ErrAspectRatio     = errors.New("unsupported aspect ratio")
	ErrColor           = errors.New("invalid hex color")
	ErrNotList         = errors.New("field is not a list")
	ErrAlreadySelected = errors.New("option already selected")
)

var hexColorRegex = regexp.MustCompile(`^#([0-9a-fA-F]{6}|[0-9a-fA-F]{3})$`)

// Record holds every attribute of one prompt. Fields are only written through
// Update, which keeps list fields free of duplicates.
type Record struct {
	subject   string
	timePlace string
	actionJob string

	styles        []string
	lighting      []string
	environment   string
	palette       []string
	customColor   string
	mood          []string
	quality       []string
	accelerators  []string
	negativeWords string
	aspectRatio   string
	cameraAngles  []string
	cameraLenses  []string
}

func New() Record {
	return Record{
		styles:       []string{},
		lighting:     []string{},
		palette:      []string{},
		customColor:  DefaultCustomColor,
		mood:         []string{},
		quality:      []string{},
		accelerators: []string{},
		aspectRatio:  DefaultAspectRatio,
		cameraAngles: []string{},
		cameraLenses: []string{},
	}
}

func (r Record) Clone() Record {
	out := r
	for _, def := range fieldTable {
		if def.kind == kindList {
			*out.listPtr(def.field) = cloneList(r.List(def.field))
		}
	}
	return out
}

// Update replaces exactly one field. Only the value's own shape is checked.
func (r *Record) Update(field Field, value any) error {
	def, ok := lookup(field)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	if def.kind == kindList {
		list, ok := asList(value)
		if !ok {
			return fmt.Errorf("%w: %s expects a list of strings, got %T", ErrFieldType, field, value)
		}
		*r.listPtr(field) = uniq(list)
		return nil
	}

	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("%w: %s expects a string, got %T", ErrFieldType, field, value)
	}

	switch def.kind {
	case kindColor:
		s = strings.TrimSpace(s)
		if !hexColorRegex.MatchString(s) {
			return fmt.Errorf("%w: %q", ErrColor, s)
		}
	case kindRatio:
		s = strings.TrimSpace(s)
		if !IsAspectRatio(s) {
			return fmt.Errorf("%w: %q", ErrAspectRatio, s)
		}
	}

	*r.textPtr(field) = s
	return nil
}

func (r *Record) Select(field Field, option string) error {
	if !IsList(field) {
		return fmt.Errorf("%w: %s", ErrNotList, field)
	}
	option = strings.TrimSpace(option)
	current := r.List(field)
	for _, v := range current {
		if v == option {
			return fmt.Errorf("%w: %q", ErrAlreadySelected, option)
		}
	}
	return r.Update(field, append(current, option))
}

func (r *Record) Deselect(field Field, option string) error {
	if !IsList(field) {
		return fmt.Errorf("%w: %s", ErrNotList, field)
	}
	current := r.List(field)
	out := make([]string, 0, len(current))
	for _, v := range current {
		if v == option {
			continue
		}
		out = append(out, v)
	}
	return r.Update(field, out)
}

// Value returns a copy of the field's value: string or []string.
func (r Record) Value(field Field) (any, bool) {
	def, ok := lookup(field)
	if !ok {
		return nil, false
	}
	if def.kind == kindList {
		return r.List(field), true
	}
	return r.Text(field), true
}

func (r Record) Text(field Field) string {
	p := (&r).textPtr(field)
	if p == nil {
		return ""
	}
	return *p
}

func (r Record) List(field Field) []string {
	p := (&r).listPtr(field)
	if p == nil {
		return []string{}
	}
	return cloneList(*p)
}

func (r Record) Subject() string       { return r.subject }
func (r Record) TimePlace() string     { return r.timePlace }
func (r Record) ActionJob() string     { return r.actionJob }
func (r Record) Environment() string   { return r.environment }
func (r Record) NegativeWords() string { return r.negativeWords }
func (r Record) CustomColor() string   { return r.customColor }
func (r Record) AspectRatio() string   { return r.aspectRatio }

// MarshalJSON renders every field in record order.
func (r Record) MarshalJSON() ([]byte, error) {
	var all FieldMap
	for _, def := range fieldTable {
		v, _ := r.Value(def.field)
		all = append(all, Entry{Field: def.field, Value: v})
	}
	return all.MarshalJSON()
}

func (r *Record) textPtr(field Field) *string {
	switch field {
	case FieldSubject:
		return &r.subject
	case FieldTimePlace:
		return &r.timePlace
	case FieldActionJob:
		return &r.actionJob
	case FieldEnvironment:
		return &r.environment
	case FieldCustomColor:
		return &r.customColor
	case FieldNegativeWords:
		return &r.negativeWords
	case FieldAspectRatio:
		return &r.aspectRatio
	}
	return nil
}

func (r *Record) listPtr(field Field) *[]string {
	switch field {
	case FieldStyles:
		return &r.styles
	case FieldLighting:
		return &r.lighting
	case FieldPalette:
		return &r.palette
	case FieldMood:
		return &r.mood
	case FieldQuality:
		return &r.quality
	case FieldAccelerators:
		return &r.accelerators
	case FieldCameraAngles:
		return &r.cameraAngles
	case FieldCameraLenses:
		return &r.cameraLenses
	}
	return nil
}

func asList(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case json.RawMessage:
		var out []string
		if err := json.Unmarshal(v, &out); err != nil || out == nil {
			return nil, false
		}
		return out, true
	default:
		return nil, false
	}
}

func uniq(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func cloneList(in []string) []string {
	return append([]string{}, in...)
}
