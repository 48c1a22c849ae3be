package observability

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jonathan/blog-agent/internal/db"
	"github.com/jonathan/blog-agent/internal/types"
)

func TestPrintContent(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	content := &types.GeneratedContent{
		Title:         "Why Gutter Cleaning Matters",
		SlugCandidate: "why-gutter-cleaning-matters",
		Description:   "Clogged gutters cause leaks.",
		Tags:          []string{"gutters", "home", "winter", "roof", "water", "damage", "diy"},
		Cover:         &types.CoverImage{Data: []byte("png"), Format: "png", Kind: types.ImageNative},
		Provenance:    types.ProvenanceFallbackModel,
		ImageKind:     types.ImageNative,
	}

	p.PrintContent(content)
	output := buf.String()

	assert.Contains(t, output, "GENERATED CONTENT")
	assert.Contains(t, output, "Why Gutter Cleaning Matters")
	assert.Contains(t, output, "fallback_model")
	assert.Contains(t, output, "native (png, 3 bytes)")
	assert.Contains(t, output, "Tags:       gutters, home, winter, roof ... and 3 more")
	assert.NotContains(t, output, "diy")
	for _, line := range strings.Split(strings.TrimSuffix(output, "\n"), "\n") {
		assert.NotContains(t, line, "an...")
	}
}

func TestListLine(t *testing.T) {
	short := []string{"a", "b", "c", "d", "e", "f", "g"}
	assert.Equal(t, "Tags: a, b, c, d, e ... and 2 more", listLine("Tags: ", short, 56))
	assert.Equal(t, "Tags: a, b", listLine("Tags: ", short[:2], 56))

	long := []string{strings.Repeat("x", 60), "y"}
	assert.Equal(t, "Tags: 2 items", listLine("Tags: ", long, 20))

	got := listLine("Tags:       ", []string{"gutters", "home", "winter", "roof", "water", "damage"}, 40)
	assert.LessOrEqual(t, utf8.RuneCountInString(got), 40)
	assert.True(t, strings.HasSuffix(got, "more"))
}

func TestPrintContent_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintContent(nil)
	assert.Empty(t, buf.String())
}

func TestPrintPost(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	slug := "gutter-cleaning"
	cover := "https://cdn.example.com/blogs/cover.png"
	post := &db.Post{ID: uuid.New(), Slug: &slug, Status: types.StatusDraft, CoverURL: &cover}
	social := []db.SocialPost{
		{Platform: db.PlatformLinkedIn, Content: "Clean gutters\n\nhttps://blog/gutter-cleaning"},
		{Platform: db.PlatformInstagram, Content: "Clean gutters #home"},
	}

	p.PrintPost(post, social)
	output := buf.String()

	assert.Contains(t, output, "STORED POST")
	assert.Contains(t, output, post.ID.String())
	assert.Contains(t, output, "gutter-cleaning")
	assert.Contains(t, output, "LINKEDIN: Clean gutters")
	assert.Contains(t, output, "INSTAGRAM: Clean gutters #home")
}

func TestPrintPost_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintPost(nil, nil)
	assert.Empty(t, buf.String())
}

func TestPrintProgress(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintProgress(40, "acquiring cover image")
	assert.Equal(t, "[ 40%] acquiring cover image\n", buf.String())
}

func TestPrintBox_TruncatesAndAligns(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TITLE", strings.Repeat("ã", 100)+"\nshort")

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	for _, line := range lines {
		assert.Equal(t, boxWidth, utf8.RuneCountInString(line), "line %q", line)
	}
	assert.Contains(t, buf.String(), "...")
}
