package util

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"text/template"
)

var promptFuncs = template.FuncMap{
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"default": func(fallback, val any) any {
		if val == nil || val == "" {
			return fallback
		}
		return val
	},
}

// Parsed prompts keyed by source text. Instructions are a handful of
// constants, so the cache stays small.
var promptCache sync.Map

// RenderTemplate renders a prompt with text/template. Text without template
// markers is returned unchanged.
func RenderTemplate(text string, data map[string]any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	tmpl, err := parsePrompt(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	return buf.String(), nil
}

func parsePrompt(text string) (*template.Template, error) {
	if cached, ok := promptCache.Load(text); ok {
		return cached.(*template.Template), nil
	}

	tmpl, err := template.New("prompt").Option("missingkey=error").Funcs(promptFuncs).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse prompt: %w", err)
	}

	promptCache.Store(text, tmpl)
	return tmpl, nil
}
