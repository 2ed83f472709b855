// Package prompt builds LLM prompts from YAML-configured templates and
// renders assembled context payloads into the single prompt string handed
// to the model.
package prompt

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMissingInstruction is returned when a template has no instruction,
// the only required field.
var ErrMissingInstruction = errors.New("prompt: missing required field 'instruction'")

// Template specifies the components of a prompt. All fields except
// Instruction are optional; list-valued fields render as bullet lists.
type Template struct {
	Description       string   `yaml:"description,omitempty"`
	Role              string   `yaml:"role,omitempty"`
	Instruction       string   `yaml:"instruction"`
	Context           string   `yaml:"context,omitempty"`
	OutputConstraints []string `yaml:"output_constraints,omitempty"`
	StyleOrTone       []string `yaml:"style_or_tone,omitempty"`
	OutputFormat      []string `yaml:"output_format,omitempty"`
	Examples          []string `yaml:"examples,omitempty"`
	Goal              string   `yaml:"goal,omitempty"`
}

// Library is a named collection of prompt templates.
type Library struct {
	templates map[string]Template
}

// LoadLibrary reads a template library from a YAML file. The file maps
// template names to Template documents.
func LoadLibrary(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("prompt: read templates %s: %w", path, err)
	}

	templates := make(map[string]Template)
	if err := yaml.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("prompt: parse templates %s: %w", path, err)
	}

	return &Library{templates: templates}, nil
}

// Get returns the named template. The second result is false when the
// library has no template under that name.
func (l *Library) Get(name string) (Template, bool) {
	t, ok := l.templates[name]
	return t, ok
}

// Names returns the names of all templates in the library.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.templates))
	for name := range l.templates {
		names = append(names, name)
	}
	return names
}

// Build constructs a complete prompt string from a template and the input
// content it should operate on. Section order is fixed so prompts remain
// stable across runs.
func Build(t Template, inputData string) (string, error) {
	if strings.TrimSpace(t.Instruction) == "" {
		return "", ErrMissingInstruction
	}

	var parts []string

	if role := strings.TrimSpace(t.Role); role != "" {
		parts = append(parts, fmt.Sprintf("You are %s.", lowercaseFirst(role)))
	}

	parts = append(parts, formatSection("Your task is as follows:", []string{t.Instruction}))

	if t.Context != "" {
		parts = append(parts, "Here's some background that may help you:\n"+t.Context)
	}
	if len(t.OutputConstraints) > 0 {
		parts = append(parts, formatSection("Ensure your response follows these rules:", t.OutputConstraints))
	}
	if len(t.StyleOrTone) > 0 {
		parts = append(parts, formatSection("Follow these style and tone guidelines in your response:", t.StyleOrTone))
	}
	if len(t.OutputFormat) > 0 {
		parts = append(parts, formatSection("Structure your response as follows:", t.OutputFormat))
	}
	if len(t.Examples) > 0 {
		parts = append(parts, "Here are some examples to guide your response:")
		for i, example := range t.Examples {
			parts = append(parts, fmt.Sprintf("Example %d:\n%s", i+1, example))
		}
	}
	if t.Goal != "" {
		parts = append(parts, "Your goal is to achieve the following outcome:\n"+t.Goal)
	}

	if inputData != "" {
		parts = append(parts, "Here is the content you need to work with:\n<<<BEGIN CONTENT>>>\n```\n"+
			strings.TrimSpace(inputData)+"\n```\n<<<END CONTENT>>>")
	}

	parts = append(parts, "Now perform the task as instructed above.")
	return strings.Join(parts, "\n\n"), nil
}

// formatSection renders a header followed by its content. Multi-item
// content becomes a bullet list; a single item renders as-is.
func formatSection(header string, content []string) string {
	if len(content) == 1 {
		return header + "\n" + content[0]
	}
	var b strings.Builder
	b.WriteString(header)
	for _, item := range content {
		b.WriteString("\n- ")
		b.WriteString(item)
	}
	return b.String()
}

// lowercaseFirst lowers the first character so the role reads naturally
// after "You are".
func lowercaseFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
