// Package slug turns titles into URL-safe identifiers and allocates unique ones
// against the set already persisted.
package slug

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLength caps the normalized base, before any numeric suffix.
const MaxLength = 80

// FallbackBase is used when the input normalizes to nothing.
const FallbackBase = "post"

// Normalize strips diacritics, lowercases, collapses every run of characters
// outside [a-z0-9] into one '-', trims separators and caps the length.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	pendingSep := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}

	out := b.String()
	if len(out) > MaxLength {
		out = strings.TrimRight(out[:MaxLength], "-")
	}
	return out
}

// Base normalizes s, falling back to FallbackBase when nothing usable remains.
func Base(s string) string {
	if base := Normalize(s); base != "" {
		return base
	}
	return FallbackBase
}

// Lister reads the slugs currently persisted.
type Lister interface {
	// ListSlugsWithPrefix returns every stored slug starting with prefix,
	// ignoring the record excludeID when it is non-nil.
	ListSlugsWithPrefix(ctx context.Context, prefix string, excludeID *uuid.UUID) ([]string, error)
}

// Allocator assigns slugs that are unique at read time. The read and the later
// write are not atomic; callers that insert must handle a uniqueness conflict.
type Allocator struct {
	lister Lister
}

// NewAllocator creates an allocator reading from lister.
func NewAllocator(lister Lister) *Allocator {
	return &Allocator{lister: lister}
}

// Allocate returns Base(base) if unused, otherwise the first free "-N" variant, N >= 2.
func (a *Allocator) Allocate(ctx context.Context, base string, excludeID *uuid.UUID) (string, error) {
	candidate := Base(base)

	existing, err := a.lister.ListSlugsWithPrefix(ctx, candidate, excludeID)
	if err != nil {
		return "", fmt.Errorf("failed to list slugs for %q: %w", candidate, err)
	}
	return firstFree(candidate, existing), nil
}

func firstFree(base string, existing []string) string {
	taken := make(map[string]struct{}, len(existing))
	for _, s := range existing {
		taken[s] = struct{}{}
	}
	if _, ok := taken[base]; !ok {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}
