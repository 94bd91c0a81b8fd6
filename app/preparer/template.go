package preparer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
)

const (
	OrderConfirmationTemplate = "order_email.html"
	OrderConfirmationSubject  = "Your Order Confirmation"
	PlainTextFallback         = "Your email client does not support HTML."
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

// Renderer renders a named template with the given parameters.
type Renderer interface {
	Render(name string, params any) (string, error)
}

// TemplateRenderer renders html/template files parsed once at construction.
type TemplateRenderer struct {
	templates *template.Template
}

// NewTemplateRenderer parses every *.html template in fsys.
func NewTemplateRenderer(fsys fs.FS) (*TemplateRenderer, error) {
	tmpl, err := template.New("").Option("missingkey=error").ParseFS(fsys, "*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &TemplateRenderer{templates: tmpl}, nil
}

// NewEmbeddedRenderer returns a renderer over the templates shipped with the binary.
func NewEmbeddedRenderer() (*TemplateRenderer, error) {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return nil, err
	}
	return NewTemplateRenderer(sub)
}

// Render executes the named template.
func (r *TemplateRenderer) Render(name string, params any) (string, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, params); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// OrderConfirmationStep fills subject and bodies of an order confirmation.
type OrderConfirmationStep struct {
	renderer Renderer
}

// NewOrderConfirmationStep creates a step that renders the order template.
func NewOrderConfirmationStep(renderer Renderer) *OrderConfirmationStep {
	return &OrderConfirmationStep{renderer: renderer}
}

// Prepare renders the HTML body with the order id as the only parameter.
func (s *OrderConfirmationStep) Prepare(_ context.Context, msg *Message) error {
	html, err := s.renderer.Render(OrderConfirmationTemplate, map[string]any{"OrderID": msg.OrderID})
	if err != nil {
		return err
	}

	msg.Subject = OrderConfirmationSubject
	msg.PlainText = PlainTextFallback
	msg.HTML = html
	return nil
}
