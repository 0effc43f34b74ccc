package util

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"
)

// RenderTemplate replaces template variables using Go's text/template package.
// Prompts are plain text, so nothing is HTML escaped.
func RenderTemplate(text string, state map[string]any) (string, error) {
	if !strings.Contains(text, "{{") { // fast path: no template markers
		return text, nil
	}

	tmpl, err := template.New("prompt").Option("missingkey=zero").Funcs(template.FuncMap{
		"default": func(defaultVal any, val any) any {
			if val == nil || val == "" {
				return defaultVal
			}
			return val
		},
		"upper": strings.ToUpper,
		"lower": strings.ToLower,
		"now": func() string {
			return time.Now().UTC().Format(time.RFC3339)
		},
		"join": func(sep string, items []string) string {
			return strings.Join(items, sep)
		},
		"humanize": func(name string) string {
			return strings.ReplaceAll(name, "_", " ")
		},
	}).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, state); err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}

	return buf.String(), nil
}
