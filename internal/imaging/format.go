package imaging

import (
	"bytes"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Supported cover formats.
const (
	FormatPNG = "png"
	FormatJPG = "jpg"
	FormatSVG = "svg"
)

// InferFormat picks the file extension for data. A content-type hint wins when
// it names a supported format; otherwise the leading bytes decide, with png as
// the fallback.
func InferFormat(data []byte, contentTypeHint string) string {
	hint := strings.ToLower(contentTypeHint)
	switch {
	case strings.Contains(hint, "jpeg"), strings.Contains(hint, "jpg"):
		return FormatJPG
	case strings.Contains(hint, "png"):
		return FormatPNG
	case strings.Contains(hint, "svg"):
		return FormatSVG
	}

	mtype := mimetype.Detect(data)
	switch {
	case mtype.Is("image/png"):
		return FormatPNG
	case mtype.Is("image/jpeg"):
		return FormatJPG
	case mtype.Is("image/svg+xml"):
		return FormatSVG
	}

	// Some svg documents sniff as generic xml or text.
	head := data[:min(len(data), 512)]
	if bytes.Contains(head, []byte("<svg")) {
		return FormatSVG
	}
	return FormatPNG
}
