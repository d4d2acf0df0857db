package view

import "strings"

// SizeTier is one responsive size step of the viewer.
type SizeTier struct {
	Breakpoint     string
	MinScreenWidth int
	MaxWidth       int
	MaxHeight      int
}

// ViewerSizeTiers lists the viewer sizes from the smallest screen up.
var ViewerSizeTiers = []SizeTier{
	{Breakpoint: "base", MinScreenWidth: 0, MaxWidth: 300, MaxHeight: 350},
	{Breakpoint: "md", MinScreenWidth: 768, MaxWidth: 500, MaxHeight: 450},
	{Breakpoint: "lg", MinScreenWidth: 992, MaxWidth: 900, MaxHeight: 600},
}

// Viewer is the modal showing one image at full size. Its parent decides
// when it is open and which URL it shows.
type Viewer struct {
	IsOpen bool   `json:"open"`
	URL    string `json:"url"`
}

// Open shows url, replacing whatever was displayed.
func (v *Viewer) Open(url string) {
	v.URL = strings.TrimSpace(url)
	v.IsOpen = v.URL != ""
}

// Close hides the modal. The last URL is kept until the next Open.
func (v *Viewer) Close() {
	v.IsOpen = false
}

// Visible reports whether the modal should be rendered.
func (v Viewer) Visible() bool {
	return v.IsOpen && v.URL != ""
}

// Tiers exposes the size tiers to templates.
func (Viewer) Tiers() []SizeTier {
	return ViewerSizeTiers
}
