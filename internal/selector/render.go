package selector

import (
	"strings"

	"github.com/kexinhan12/creativeBucketDice/internal/domain"
)

// DefaultEntryInstruction is used when no entry point (or no entry description) was chosen.
const DefaultEntryInstruction = "Use your usual entry."

// Render produces the prompt text. The layout is stable so that seeded prompts can be
// compared byte for byte.
func Render(path domain.Path, container domain.Container, entry *domain.EntryPoint, limits []domain.Limit) string {
	names := make([]string, 0, len(limits))
	for _, l := range limits {
		names = append(names, l.Name)
	}
	limitsList := orPlaceholder(strings.Join(names, " · "))
	obeyList := orPlaceholder(strings.Join(names, "; "))

	entryName := domain.Placeholder
	entryStart := DefaultEntryInstruction
	if entry != nil {
		entryName = entry.Name
		if entry.Description != "" {
			entryStart = entry.Description
		}
	}
	containerText := container.Description
	if containerText == "" {
		containerText = container.Name
	}
	return strings.Join([]string{
		"Path: " + path.Name,
		"Container: " + container.Name,
		"Entry: " + entryName,
		"Limits: " + limitsList,
		"",
		"Creative Prompt:",
		"- Start with: " + entryStart,
		"- Deliver a " + containerText + ".",
		"- Obey strictly: " + obeyList,
	}, "\n")
}

func orPlaceholder(s string) string {
	if s == "" {
		return domain.Placeholder
	}
	return s
}
