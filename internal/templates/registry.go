// Package templates maps each notification type onto the message it renders
// on every channel: an email body and subject, an SMS text and a payload
// schema checked at intake.
package templates

import (
	"bytes"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/xeipuuv/gojsonschema"

	"github.com/ricirt/meeting-notifier/internal/domain"
)

const (
	DefaultSubject = "You have a new notification"
	DefaultSMS     = "You have a new notification. Open the app to see the details."
)

// SMSFormatter renders the text of an SMS from a payload. It must be pure.
type SMSFormatter func(domain.Payload) string

type emailTemplate struct {
	html *htmltemplate.Template
	text *texttemplate.Template
}

// Registry is a closed mapping from notification type to its handlers.
// It is built once at startup and read concurrently afterwards.
type Registry struct {
	emails   map[domain.Type]emailTemplate
	subjects map[domain.Type]string
	sms      map[domain.Type]SMSFormatter
	schemas  map[domain.Type]*gojsonschema.Schema
}

func NewRegistry() *Registry {
	return &Registry{
		emails:   make(map[domain.Type]emailTemplate),
		subjects: make(map[domain.Type]string),
		sms:      make(map[domain.Type]SMSFormatter),
		schemas:  make(map[domain.Type]*gojsonschema.Schema),
	}
}

// RegisterEmail parses the HTML and plain-text bodies for t. A payload that
// lacks a field the templates reference fails at render time.
func (r *Registry) RegisterEmail(t domain.Type, subject, htmlBody, textBody string) error {
	h, err := htmltemplate.New(string(t)).Option("missingkey=error").Parse(htmlBody)
	if err != nil {
		return fmt.Errorf("parse html template %s: %w", t, err)
	}
	x, err := texttemplate.New(string(t)).Option("missingkey=error").Parse(textBody)
	if err != nil {
		return fmt.Errorf("parse text template %s: %w", t, err)
	}
	r.emails[t] = emailTemplate{html: h, text: x}
	r.subjects[t] = subject
	return nil
}

func (r *Registry) RegisterSMS(t domain.Type, f SMSFormatter) {
	r.sms[t] = f
}

// RegisterSchema compiles a JSON schema requiring every field in required
// to be present as a string or number.
func (r *Registry) RegisterSchema(t domain.Type, required ...string) error {
	props := make(map[string]any, len(required))
	for _, f := range required {
		props[f] = map[string]any{"type": []string{"string", "number"}}
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(map[string]any{
		"type":       "object",
		"required":   required,
		"properties": props,
	}))
	if err != nil {
		return fmt.Errorf("compile schema %s: %w", t, err)
	}
	r.schemas[t] = schema
	return nil
}

// Validate fails unless every type in types has an email template, a subject,
// an SMS formatter and a payload schema.
func (r *Registry) Validate(types []domain.Type) error {
	var errs []error
	for _, t := range types {
		if _, ok := r.emails[t]; !ok {
			errs = append(errs, fmt.Errorf("%s: no email template", t))
		}
		if _, ok := r.subjects[t]; !ok {
			errs = append(errs, fmt.Errorf("%s: no subject", t))
		}
		if _, ok := r.sms[t]; !ok {
			errs = append(errs, fmt.Errorf("%s: no sms formatter", t))
		}
		if _, ok := r.schemas[t]; !ok {
			errs = append(errs, fmt.Errorf("%s: no payload schema", t))
		}
	}
	return errors.Join(errs...)
}

// Subject falls back to DefaultSubject for unknown types.
func (r *Registry) Subject(t domain.Type) string {
	if s, ok := r.subjects[t]; ok {
		return s
	}
	return DefaultSubject
}

// RenderEmail returns the HTML and plain-text bodies for t.
func (r *Registry) RenderEmail(t domain.Type, data domain.Payload) (string, string, error) {
	tmpl, ok := r.emails[t]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, t)
	}
	if data == nil {
		data = domain.Payload{}
	}

	var html, text bytes.Buffer
	if err := tmpl.html.Execute(&html, map[string]any(data)); err != nil {
		return "", "", fmt.Errorf("%w: html %s: %w", domain.ErrRender, t, err)
	}
	if err := tmpl.text.Execute(&text, map[string]any(data)); err != nil {
		return "", "", fmt.Errorf("%w: text %s: %w", domain.ErrRender, t, err)
	}
	return html.String(), text.String(), nil
}

// SMS falls back to DefaultSMS for types without a formatter.
func (r *Registry) SMS(t domain.Type, data domain.Payload) string {
	if f, ok := r.sms[t]; ok {
		return f(data)
	}
	return DefaultSMS
}

// ValidatePayload checks data against the schema for t. Types without a
// schema accept any payload.
func (r *Registry) ValidatePayload(t domain.Type, data domain.Payload) error {
	schema, ok := r.schemas[t]
	if !ok {
		return nil
	}
	if data == nil {
		data = domain.Payload{}
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(map[string]any(data)))
	if err != nil {
		return fmt.Errorf("validate payload: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			msgs[i] = desc.String()
		}
		return fmt.Errorf("%w: %s", domain.ErrInvalidPayload, strings.Join(msgs, "; "))
	}
	return nil
}
