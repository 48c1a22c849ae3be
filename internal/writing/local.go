package writing

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jonathan/blog-agent/internal/types"
)

const (
	maxTitleLength       = 80
	maxDescriptionLength = 250
	maxTags              = 8
	maxKeyPoints         = 6
	maxHashtags          = 5
	minTermLength        = 4
)

var stopwords = toSet(
	// en
	"about", "above", "after", "again", "against", "also", "because", "been", "before", "being",
	"below", "between", "both", "could", "does", "doing", "down", "during", "each", "even",
	"every", "from", "further", "have", "having", "here", "into", "just", "know", "like",
	"make", "more", "most", "much", "must", "need", "only", "other", "over", "really",
	"same", "should", "some", "such", "than", "that", "their", "them", "then", "there",
	"these", "they", "thing", "things", "this", "those", "through", "under", "until", "very",
	"want", "were", "what", "when", "where", "which", "while", "will", "with", "without",
	"would", "your", "yours", "yourself",
	// pt
	"para", "como", "sobre", "mais", "pelo", "pela", "esse", "essa", "isso", "quando",
	"onde", "também", "porque", "entre", "muito", "seus", "suas", "este", "esta", "está",
)

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// LocalDraft deterministically summarizes the topic into a usable article
// without any network call.
func LocalDraft(req types.GenerationRequest) types.Draft {
	topic := strings.Join(strings.Fields(req.Topic), " ")

	title := capitalize(truncateWords(firstSentence(topic), maxTitleLength))
	if title == "" {
		title = "New article"
	}
	description := truncateWords(topic, maxDescriptionLength)
	if description == "" {
		description = title
	}
	terms := keyTerms(topic, req.Keywords, maxTags)

	var body strings.Builder
	fmt.Fprintf(&body, "<h2>%s</h2>\n", html.EscapeString(title))
	fmt.Fprintf(&body, "<p>%s</p>\n", html.EscapeString(topic))
	if len(terms) > 0 {
		body.WriteString("<h2>Key points</h2>\n<ul>\n")
		for _, term := range terms[:min(len(terms), maxKeyPoints)] {
			fmt.Fprintf(&body, "<li>%s</li>\n", html.EscapeString(capitalize(term)))
		}
		body.WriteString("</ul>\n")
	}
	body.WriteString("<h2>Next steps</h2>\n")
	fmt.Fprintf(&body, "<p>%s</p>", html.EscapeString("Use these points as a starting checklist and reach out to a trusted professional when you are ready."))

	hashtags := make([]string, 0, maxHashtags)
	for _, term := range terms[:min(len(terms), maxHashtags)] {
		hashtags = append(hashtags, "#"+strings.ReplaceAll(term, " ", ""))
	}

	return types.Draft{
		Title:           title,
		Description:     description,
		Content:         body.String(),
		MetaTags:        terms,
		ImagePrompt:     title,
		SocialLinkedin:  title + "\n\n" + description,
		SocialInstagram: strings.TrimSpace(title + "\n\n" + strings.Join(hashtags, " ")),
	}
}

// firstSentence returns the text up to the first sentence terminator. A
// period, exclamation or question mark only ends a sentence when followed by
// whitespace or the end of the text, so "Go 1.24" stays whole.
func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	for i, r := range s {
		if i == 0 {
			continue
		}
		switch r {
		case '\n':
			return strings.TrimSpace(s[:i])
		case '.', '!', '?':
			next, _ := utf8.DecodeRuneInString(s[i+1:])
			if i+1 == len(s) || unicode.IsSpace(next) {
				return strings.TrimSpace(s[:i])
			}
		}
	}
	return s
}

// truncateWords cuts s to at most n runes, preferring a word boundary.
func truncateWords(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:n])
	if idx := strings.LastIndex(cut, " "); idx > len(cut)/2 {
		cut = cut[:idx]
	}
	return strings.TrimRightFunc(cut, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// keyTerms returns the caller's keywords first, then the most frequent
// non-stopword words of the topic, ties broken by first appearance.
func keyTerms(topic string, keywords []string, limit int) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, limit)
	add := func(term string) {
		if len(out) >= limit {
			return
		}
		if _, dup := seen[term]; dup {
			return
		}
		seen[term] = struct{}{}
		out = append(out, term)
	}

	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			add(k)
		}
	}

	words := strings.FieldsFunc(strings.ToLower(topic), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	counts := make(map[string]int)
	var order []string
	for _, w := range words {
		if utf8.RuneCountInString(w) < minTermLength {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	for _, w := range order {
		add(w)
	}
	return out
}
