// Package prompts provides a loader for externalized LLM prompt templates.
// Prompt files are flat JSON objects of key to template, embedded at compile time.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
)

//go:embed *.json
var promptFiles embed.FS

// Library reads prompt files from a filesystem and caches the parsed result.
type Library struct {
	fsys  fs.FS
	mu    sync.RWMutex
	files map[string]map[string]string
}

// NewLibrary creates a library over fsys.
func NewLibrary(fsys fs.FS) *Library {
	return &Library{fsys: fsys, files: make(map[string]map[string]string)}
}

var defaultLibrary = NewLibrary(promptFiles)

// Default returns the library backed by the embedded prompt files.
func Default() *Library {
	return defaultLibrary
}

// Get retrieves a prompt by filename and key.
func (l *Library) Get(filename, key string) (string, error) {
	prompts, err := l.load(filename)
	if err != nil {
		return "", err
	}

	prompt, ok := prompts[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	return prompt, nil
}

// Keys lists the prompt keys of a file in sorted order.
func (l *Library) Keys(filename string) ([]string, error) {
	prompts, err := l.load(filename)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(prompts))
	for key := range prompts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (l *Library) load(filename string) (map[string]string, error) {
	l.mu.RLock()
	prompts, ok := l.files[filename]
	l.mu.RUnlock()
	if ok {
		return prompts, nil
	}

	data, err := fs.ReadFile(l.fsys, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}
	if err := json.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}

	l.mu.Lock()
	l.files[filename] = prompts
	l.mu.Unlock()
	return prompts, nil
}

// Format replaces {{.Key}} placeholders with values from data.
// Unknown placeholders are left in place.
func Format(template string, data map[string]string) string {
	pairs := make([]string, 0, len(data)*2)
	for key, value := range data {
		pairs = append(pairs, "{{."+key+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
