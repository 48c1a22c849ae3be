// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/blog-agent/internal/db"
	"github.com/jonathan/blog-agent/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to a terminal; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if utf8.RuneCountInString(line) > inner {
			line = string([]rune(line)[:inner-3]) + "..."
		}
		fmt.Fprintf(p.out, "│ %s │\n", pad(line, inner))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// pad right-pads s with spaces to width runes.
func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// listLine shows as many of items (at most maxItemsToShow) as fit in width
// runes together with the "... and N more" suffix for the rest.
func listLine(prefix string, items []string, width int) string {
	for count := min(len(items), maxItemsToShow); count > 0; count-- {
		line := prefix + strings.Join(items[:count], ", ")
		if hidden := len(items) - count; hidden > 0 {
			line += fmt.Sprintf(" ... and %d more", hidden)
		}
		if utf8.RuneCountInString(line) <= width {
			return line
		}
	}
	return fmt.Sprintf("%s%d items", prefix, len(items))
}

// PrintProgress outputs one pipeline progress line.
//
//nolint:errcheck // writing to a terminal; errors are not recoverable
func (p *Printer) PrintProgress(percent int, message string) {
	fmt.Fprintf(p.out, "[%3d%%] %s\n", percent, message)
}

// PrintContent outputs a summary of generated content.
func (p *Printer) PrintContent(content *types.GeneratedContent) {
	if content == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Title:      %s\n", content.Title))
	sb.WriteString(fmt.Sprintf("Slug:       %s\n", content.SlugCandidate))
	sb.WriteString(fmt.Sprintf("Text:       %s\n", content.Provenance))
	sb.WriteString(fmt.Sprintf("Cover:      %s", content.ImageKind))
	if cover := content.Cover; cover != nil {
		sb.WriteString(fmt.Sprintf(" (%s, %d bytes)", cover.Format, len(cover.Data)))
	}
	sb.WriteString("\n")

	if len(content.Tags) > 0 {
		sb.WriteString(listLine("Tags:       ", content.Tags, boxWidth-4))
		sb.WriteString("\n")
	}

	if content.Description != "" {
		sb.WriteString("\n")
		sb.WriteString(content.Description)
		sb.WriteString("\n")
	}

	p.printBox("GENERATED CONTENT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintPost outputs a summary of a stored post and its social posts.
func (p *Printer) PrintPost(post *db.Post, social []db.SocialPost) {
	if post == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("ID:         %s\n", post.ID))
	sb.WriteString(fmt.Sprintf("Slug:       %s\n", post.SlugValue()))
	sb.WriteString(fmt.Sprintf("Status:     %s\n", post.Status))
	if post.CoverURL != nil {
		sb.WriteString(fmt.Sprintf("Cover URL:  %s\n", *post.CoverURL))
	}

	if len(social) > 0 {
		sb.WriteString("\nSocial posts:\n")
		for _, sp := range social {
			first, _, _ := strings.Cut(sp.Content, "\n")
			sb.WriteString(fmt.Sprintf("  • %s: %s\n", sp.Platform, first))
		}
	}

	p.printBox("STORED POST", strings.TrimSuffix(sb.String(), "\n"))
}
