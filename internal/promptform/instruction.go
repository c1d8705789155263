package promptform

import (
	"fmt"
	"strings"
)

// BuildInstruction composes the brief sent to the text model. Sections are
// always written in the same order: subject and action, context, style,
// lighting/color/mood, camera/technical, aspect ratio, exclusions.
func BuildInstruction(r Record) string {
	var b strings.Builder
	b.Grow(2048)

	b.WriteString("ROLE: Professional image prompt engineer.\n")
	b.WriteString("TASK: Translate the Persian (Farsi) parameters below into one detailed English prompt for an AI image generator (Midjourney / Stable Diffusion style).\n\n")

	b.WriteString("PARAMETERS:\n")
	writeSection(&b, "1. Subject + action", []string{
		"Subject: " + strings.TrimSpace(r.subject),
		"Action/Context: " + strings.TrimSpace(r.actionJob),
	})
	writeSection(&b, "2. Environment / context", []string{
		"Time/Location: " + strings.TrimSpace(r.timePlace),
		optional("Environment", r.environment),
	})
	writeSection(&b, "3. Art style / medium", []string{
		joined("Styles", r.styles),
	})

	colors := joined("Colors", r.palette)
	if r.customColor != "" && !strings.EqualFold(r.customColor, DefaultCustomColor) {
		colors = strings.TrimSpace(colors + " (Accent hex: " + r.customColor + ")")
	}
	writeSection(&b, "4. Lighting / color / mood", []string{
		joined("Lighting", r.lighting),
		colors,
		joined("Mood", r.mood),
	})

	camera := joined("Camera", r.cameraAngles)
	if len(r.cameraLenses) > 0 {
		camera = strings.TrimSpace(camera + " using " + strings.Join(r.cameraLenses, ", ") + " lens")
	}
	writeSection(&b, "5. Camera / technical", []string{
		camera,
		joined("Quality", r.quality),
		joined("Technical", r.accelerators),
	})
	b.WriteString(fmt.Sprintf("- 6. Aspect ratio: --ar %s\n", r.aspectRatio))
	if negative := strings.TrimSpace(r.negativeWords); negative != "" {
		b.WriteString("- 7. Negative prompts (avoid): " + negative + "\n")
	}
	b.WriteString("\n")

	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString("1. Translate the core ideas from Persian to English accurately.\n")
	b.WriteString("2. Structure the prompt as: [Subject + Action] + [Environment/Context] + [Art Styles/Medium] + [Lighting/Color/Mood] + [Camera/Technical].\n")
	b.WriteString(fmt.Sprintf("3. Append the aspect ratio at the very end as: --ar %s\n", r.aspectRatio))
	if strings.TrimSpace(r.negativeWords) != "" {
		b.WriteString("4. Append the negative prompts after the aspect ratio using the --no parameter syntax.\n")
	}
	b.WriteString("RETURN ONLY THE FINAL PROMPT STRING. NO EXPLANATIONS.\n")

	return strings.TrimSpace(b.String())
}

func writeSection(b *strings.Builder, title string, lines []string) {
	var kept []string
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	if len(kept) == 0 {
		return
	}
	b.WriteString("- " + title + ":\n")
	for _, line := range kept {
		b.WriteString("  - " + line + "\n")
	}
}

func joined(label string, values []string) string {
	if len(values) == 0 {
		return ""
	}
	return label + ": " + strings.Join(values, ", ")
}

func optional(label, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	return label + ": " + value
}
