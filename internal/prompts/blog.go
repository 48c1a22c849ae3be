package prompts

import (
	"strings"

	"github.com/jonathan/blog-agent/internal/llm"
	"github.com/jonathan/blog-agent/internal/types"
)

const blogFile = "blog.json"

// Blog builds the article prompt for req, written for siteName.
func (l *Library) Blog(req types.GenerationRequest, siteName string) (llm.Prompt, error) {
	system, err := l.Get(blogFile, "system")
	if err != nil {
		return llm.Prompt{}, err
	}
	user, err := l.Get(blogFile, "user")
	if err != nil {
		return llm.Prompt{}, err
	}

	data := map[string]string{
		"SiteName": orDefault(siteName, "our blog"),
		"Language": orDefault(req.Language, "English (US)"),
		"Topic":    strings.TrimSpace(req.Topic),
		"Tone":     orDefault(req.Tone, "warm and authoritative"),
		"Audience": orDefault(req.Audience, "general readers"),
		"Keywords": orDefault(strings.Join(req.Keywords, ", "), "choose the most relevant ones"),
	}
	return llm.Prompt{
		System: Format(system, data),
		User:   Format(user, data),
	}, nil
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
