// Package slides fits generated diagrams onto common slide deck canvases.
package slides

import "fmt"

// FormatOriginal keeps the generated image untouched.
const FormatOriginal = "original"

// Format is a slide canvas preset. Width and Height are nil for the
// pass-through format.
type Format struct {
	Key    string `json:"-"`
	Label  string `json:"label"`
	Width  *int   `json:"width"`
	Height *int   `json:"height"`
}

// Resizes reports whether the format has target dimensions.
func (f Format) Resizes() bool {
	return f.Width != nil && f.Height != nil
}

func (f Format) String() string {
	if !f.Resizes() {
		return f.Key
	}
	return fmt.Sprintf("%s (%dx%d)", f.Key, *f.Width, *f.Height)
}

func dims(w, h int) (*int, *int) {
	return &w, &h
}

func preset(key, label string, w, h int) Format {
	width, height := dims(w, h)
	return Format{Key: key, Label: label, Width: width, Height: height}
}

// keys fixes the listing order.
var keys = []string{FormatOriginal, "hd_16_9", "hd_4_3", "qhd_16_9"}

// Formats is the registry of slide presets.
var Formats = map[string]Format{
	FormatOriginal: {Key: FormatOriginal, Label: "Original (no resize)"},
	"hd_16_9":      preset("hd_16_9", "HD 16:9 (1920×1080)", 1920, 1080),
	"hd_4_3":       preset("hd_4_3", "HD 4:3 (1440×1080)", 1440, 1080),
	"qhd_16_9":     preset("qhd_16_9", "2K 16:9 (2560×1440)", 2560, 1440),
}

// Keys returns format keys in display order.
func Keys() []string {
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// Lookup returns the format registered under key.
func Lookup(key string) (Format, bool) {
	f, ok := Formats[key]
	return f, ok
}
