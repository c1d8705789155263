package promptform

type NamedOption struct {
	Field Field
	Name  string
}

var fieldLabels = map[Field]string{
	FieldSubject:       "سوژه",
	FieldTimePlace:     "زمان و مکان",
	FieldActionJob:     "فعل و موقعیت کاری",
	FieldStyles:        "سبک هنری",
	FieldLighting:      "نورپردازی",
	FieldEnvironment:   "محیط و بک‌گراند",
	FieldPalette:       "پالت رنگی",
	FieldCustomColor:   "رنگ خاص",
	FieldMood:          "فضا و حس و حال",
	FieldQuality:       "کیفیت",
	FieldAccelerators:  "کلمات شتاب‌دهنده",
	FieldNegativeWords: "کلمات سلبی",
	FieldAspectRatio:   "ابعاد تصویر",
	FieldCameraAngles:  "زاویه دوربین",
	FieldCameraLenses:  "لنز دوربین",
}

var aspectRatios = []string{
	"1:1", "3:4", "4:3", "9:16", "16:9", "2:1",
	"21:9", "5:4", "4:5", "3:2", "2:3",
}

var listOptions = map[Field][]string{
	FieldStyles: {
		"مینیاتور", "سه‌بعدی", "رنگ‌وروغن", "ونگوگ", "سورئالیسم",
		"رئالیسم", "امپرسیونیسم", "دیجیتال آرت", "مانگا", "فوتورئالیسم",
	},
	FieldLighting: {
		"دراماتیک", "سینماتیک", "اکشن", "طبیعی", "ملایم",
		"نور از پشت", "نور استودیویی", "کنتراست بالا",
	},
	FieldPalette: {
		"رنگ گرم", "رنگ سرد", "نئونی", "تیره", "روشن", "پاستلی", "طبیعی",
	},
	FieldMood: {
		"حماسی", "غمگین", "شاد", "ترسناک", "الهام‌بخش",
		"آرامش‌بخش", "هیجان‌انگیز", "تاریک", "احساسی",
	},
	FieldQuality: {
		"1080p", "4K", "8K", "جزئیات بالا", "جزئیات خیلی بالا",
		"جزئیات فوق‌العاده بالا", "Ultra-Realistic",
	},
	FieldAccelerators: {
		"فوکوس تیز", "شاهکار هنری", "Ultra HD", "High Detail",
		"Clean Render", "Hyper Realistic", "Noise-Free", "Highly Polished",
	},
	FieldCameraAngles: {
		"کلوزآپ", "اکستریم کلوزآپ", "مدیوم‌شات", "لانگ‌شات", "اکستریم لانگ‌شات",
		"نمای نیم‌تنه", "نمای از پشت سر", "نمای از بالا", "نمای از پایین",
		"نمای از سطح زمین", "نمای سه‌رخ", "نمای نیم‌رخ", "نمای تمام‌رخ",
		"نمای پشت‌سر", "Tilt Shot", "Dutch Angle", "POV", "Worm View",
	},
	FieldCameraLenses: {
		"14mm", "24mm", "35mm", "50mm", "85mm", "105mm", "135mm",
		"200mm", "300mm", "400mm", "18–55mm", "24–70mm", "70–200mm",
	},
}

func Label(field Field) string {
	if label, ok := fieldLabels[field]; ok {
		return label
	}
	return string(field)
}

// Options returns the selectable values of a list field or the aspect ratio.
func Options(field Field) []string {
	if field == FieldAspectRatio {
		return AspectRatios()
	}
	return append([]string(nil), listOptions[field]...)
}

func AspectRatios() []string {
	return append([]string(nil), aspectRatios...)
}

func IsAspectRatio(value string) bool {
	for _, r := range aspectRatios {
		if r == value {
			return true
		}
	}
	return false
}

// SelectableFields lists the style fields a user picks from a menu, in
// record order.
func SelectableFields() []NamedOption {
	var out []NamedOption
	for _, f := range StyleFields() {
		if IsList(f) || f == FieldAspectRatio {
			out = append(out, NamedOption{Field: f, Name: Label(f)})
		}
	}
	return out
}
