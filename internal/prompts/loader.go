// Package prompts holds the LLM prompt templates for every generation tool.
// Templates live in tools.json, embedded at compile time and parsed once.
package prompts

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

//go:embed tools.json
var toolsJSON []byte

var placeholderPattern = regexp.MustCompile(`\{\{\.([A-Za-z][A-Za-z0-9]*)\}\}`)

// Set is a parsed collection of named templates.
type Set struct {
	templates map[string]string
}

// Parse decodes a JSON object mapping template keys to template text.
// Blank templates are rejected.
func Parse(data []byte) (*Set, error) {
	var templates map[string]string
	if err := json.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("failed to parse prompt templates: %w", err)
	}
	for key, tmpl := range templates {
		if strings.TrimSpace(tmpl) == "" {
			return nil, fmt.Errorf("prompt template %q is empty", key)
		}
	}
	return &Set{templates: templates}, nil
}

// Lookup returns the template stored under key.
func (s *Set) Lookup(key string) (string, error) {
	tmpl, ok := s.templates[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found", key)
	}
	return tmpl, nil
}

// Keys returns every template key in sorted order.
func (s *Set) Keys() []string {
	keys := make([]string, 0, len(s.templates))
	for key := range s.templates {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

var defaultSet = sync.OnceValues(func() (*Set, error) {
	return Parse(toolsJSON)
})

// Default returns the embedded tool templates.
func Default() (*Set, error) {
	return defaultSet()
}

// mustLookup reads from the embedded set. The embedded file is covered by
// tests, so a failure here is a build defect.
func mustLookup(key string) string {
	set, err := Default()
	if err != nil {
		panic(err)
	}
	tmpl, err := set.Lookup(key)
	if err != nil {
		panic(err)
	}
	return tmpl
}

// Placeholders lists the distinct {{.Name}} placeholders in tmpl, in order
// of first appearance.
func Placeholders(tmpl string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range placeholderPattern.FindAllStringSubmatch(tmpl, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Format replaces {{.Key}} placeholders with values from data. Substitution
// is a single pass, so placeholder-like text inside a value is inserted
// literally and never expanded. Placeholders without a value are left as is.
func Format(tmpl string, data map[string]string) string {
	if len(data) == 0 {
		return tmpl
	}
	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		if value, ok := data[name]; ok {
			return value
		}
		return match
	})
}
