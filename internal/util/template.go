package util

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

var promptFuncs = template.FuncMap{
	"join":  func(sep string, items []string) string { return strings.Join(items, sep) },
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
	"quote": func(items []string) []string {
		out := make([]string, len(items))
		for i, s := range items {
			out[i] = fmt.Sprintf("%q", s)
		}
		return out
	},
	"default": func(fallback, val string) string {
		if val == "" {
			return fallback
		}
		return val
	},
}

// RenderTemplate executes text as a text/template against data. Referencing
// a key missing from data is an error, so a misspelled field in a custom
// prompt fails when the conference is built rather than rendering "<no value>".
func RenderTemplate(text string, data map[string]any) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	tmpl, err := template.New("prompt").Option("missingkey=error").Funcs(promptFuncs).Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}
