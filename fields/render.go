package fields

import (
	"bytes"
	"fmt"
	"html/template"
)

// Renderer renders the card html of an item from its fields
type Renderer interface {
	Render(fs FieldSet) (string, error)
}

// RendererFunc adapts a function to Renderer
type RendererFunc func(fs FieldSet) (string, error)

// Render implements Renderer
func (f RendererFunc) Render(fs FieldSet) (string, error) {
	return f(fs)
}

// DefaultCardTemplate shows the counter label and value
const DefaultCardTemplate = `<article><section><p class="text-auto-size">{{.name}}: <strong>{{.num}}</strong></p></section></article>`

// TemplateRenderer renders with html/template, fields are the template data
type TemplateRenderer struct {
	tmpl *template.Template
}

// NewTemplateRenderer parses text as the card template
func NewTemplateRenderer(text string) (*TemplateRenderer, error) {
	tmpl, err := template.New("card").Option("missingkey=zero").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse card template fail: %w", err)
	}
	return &TemplateRenderer{tmpl: tmpl}, nil
}

// Render implements Renderer
func (p *TemplateRenderer) Render(fs FieldSet) (string, error) {
	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, map[string]interface{}(fs)); err != nil {
		return "", fmt.Errorf("render card fail: %w", err)
	}
	return buf.String(), nil
}
