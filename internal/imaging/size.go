package imaging

import (
	"strconv"
	"strings"
)

// Size presets accepted by the image provider.
const (
	SizeSquare    = "1024x1024"
	SizePortrait  = "1024x1536"
	SizeLandscape = "1536x1024"
	SizeAuto      = "auto"

	// DefaultSize is used for anything that cannot be parsed.
	DefaultSize = SizeLandscape
)

// autoWidth and autoHeight size placeholders when the provider picks the size.
const (
	autoWidth  = 1200
	autoHeight = 630
)

// NormalizeSize coerces size to a supported preset by aspect ratio.
func NormalizeSize(size string) string {
	size = strings.ToLower(strings.TrimSpace(size))
	switch size {
	case SizeSquare, SizePortrait, SizeLandscape, SizeAuto:
		return size
	}

	w, h, ok := parseSize(size)
	switch {
	case !ok:
		return DefaultSize
	case w == h:
		return SizeSquare
	case w > h:
		return SizeLandscape
	default:
		return SizePortrait
	}
}

// Dimensions returns the pixel size used for placeholders.
func Dimensions(size string) (width, height int) {
	if w, h, ok := parseSize(NormalizeSize(size)); ok {
		return w, h
	}
	return autoWidth, autoHeight
}

func parseSize(size string) (int, int, bool) {
	ws, hs, found := strings.Cut(size, "x")
	if !found {
		return 0, 0, false
	}
	w, err := strconv.Atoi(ws)
	if err != nil || w <= 0 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(hs)
	if err != nil || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}
