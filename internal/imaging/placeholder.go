package imaging

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	placeholderTextLength = 60
	syntheticTitleLength  = 80

	backgroundColor = "#0e1116"
	foregroundColor = "#e6edf3"
	accentColor     = "#2ea043"
	fontFamily      = `-apple-system,BlinkMacSystemFont,Segoe UI,Roboto,Ubuntu,Cantarell,"Helvetica Neue",sans-serif`
)

// PlaceholderURL expands {width}, {height} and {text} in template.
func PlaceholderURL(template string, width, height int, title string) string {
	text := strings.ReplaceAll(url.QueryEscape(truncateRunes(title, placeholderTextLength)), "+", "%20")
	return strings.NewReplacer(
		"{width}", strconv.Itoa(width),
		"{height}", strconv.Itoa(height),
		"{text}", text,
	).Replace(template)
}

// SyntheticPlaceholder renders an SVG cover with the title and a site label.
func SyntheticPlaceholder(width, height int, title, siteName string) []byte {
	fontSize := max(24, min(48, width/24))
	labelSize := max(14, fontSize*6/10)
	y := height / 2

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`, width, height, width, height)
	fmt.Fprintf(&buf, `<rect width="100%%" height="100%%" fill="%s"/>`, backgroundColor)
	buf.WriteString(`<g font-family="`)
	escape(&buf, fontFamily)
	buf.WriteString(`">`)
	fmt.Fprintf(&buf, `<text x="40" y="%d" fill="%s" font-size="%d" font-weight="700">`, y, foregroundColor, fontSize)
	escape(&buf, truncateRunes(title, syntheticTitleLength))
	buf.WriteString(`</text>`)
	fmt.Fprintf(&buf, `<text x="40" y="%d" fill="%s" font-size="%d" font-weight="500">`, y+fontSize+20, accentColor, labelSize)
	escape(&buf, siteName)
	buf.WriteString(`</text></g></svg>`)
	return buf.Bytes()
}

func escape(buf *bytes.Buffer, s string) {
	_ = xml.EscapeText(buf, []byte(s))
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
