package view

import (
	"html/template"
	"strings"
)

type iconAsset struct {
	Key   string
	SVG   string
	Label string
}

var (
	iconDefinitions = []iconAsset{
		{Key: "add", Label: "Add image", SVG: `<svg viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="1.5" stroke-linecap="round" stroke-linejoin="round" aria-hidden="true"><path d="M12 4.5v15m7.5-7.5h-15"/></svg>`},
		{Key: "close", Label: "Close", SVG: `<svg viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="1.5" stroke-linecap="round" stroke-linejoin="round" aria-hidden="true"><path d="M6 18 18 6M6 6l12 12"/></svg>`},
		{Key: "external", Label: "Open original", SVG: `<svg viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="1.5" stroke-linecap="round" stroke-linejoin="round" aria-hidden="true"><path d="M13.5 6H5.25A2.25 2.25 0 0 0 3 8.25v10.5A2.25 2.25 0 0 0 5.25 21h10.5A2.25 2.25 0 0 0 18 18.75V10.5m-10.5 6L21 3m0 0h-5.25M21 3v5.25"/></svg>`},
		{Key: "upload", Label: "Upload", SVG: `<svg viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="1.5" stroke-linecap="round" stroke-linejoin="round" aria-hidden="true"><path d="M3 16.5v2.25A2.25 2.25 0 0 0 5.25 21h13.5A2.25 2.25 0 0 0 21 18.75V16.5m-13.5-9L12 3m0 0 4.5 4.5M12 3v13.5"/></svg>`},
	}
	defaultIcon = iconAsset{Key: "default", Label: "", SVG: `<svg viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="1.5" aria-hidden="true"><circle cx="12" cy="12" r="9"/></svg>`}
	iconLookup  = func() map[string]iconAsset {
		lookup := make(map[string]iconAsset, len(iconDefinitions)+1)
		for _, icon := range iconDefinitions {
			lookup[icon.Key] = icon
		}
		lookup[defaultIcon.Key] = defaultIcon
		return lookup
	}()
)

// Icon resolves the inline SVG for key, falling back to the default icon.
func Icon(key string) template.HTML {
	trimmed := strings.ToLower(strings.TrimSpace(key))
	if icon, ok := iconLookup[trimmed]; ok {
		return template.HTML(icon.SVG)
	}
	return template.HTML(defaultIcon.SVG)
}

// IconLabel returns the accessible label of an icon.
func IconLabel(key string) string {
	if icon, ok := iconLookup[strings.ToLower(strings.TrimSpace(key))]; ok {
		return icon.Label
	}
	return ""
}
