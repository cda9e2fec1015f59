package ai

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts/*.prompt
var embeddedPrompts embed.FS

// PromptConfig holds metadata from the YAML frontmatter.
type PromptConfig struct {
	Model       string   `yaml:"model"`
	Temperature *float32 `yaml:"temperature"`
	// Inline prompts render the document text into the template instead of
	// sending it as a separate part.
	Inline bool `yaml:"inline"`
}

// Prompt represents a loaded prompt with config and template.
type Prompt struct {
	Name     string
	Config   PromptConfig
	Template *template.Template
}

// LoadPrompt reads a .prompt file from fsys, parses frontmatter and body.
func LoadPrompt(fsys fs.FS, path string) (*Prompt, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file: %w", err)
	}

	parts := strings.SplitN(string(data), "---", 3)
	if len(parts) < 3 {
		return nil, fmt.Errorf("invalid prompt format: missing frontmatter delimiters")
	}

	frontmatter := parts[1]
	body := parts[2]

	var config PromptConfig
	if err := yaml.Unmarshal([]byte(frontmatter), &config); err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
	}

	tmpl, err := template.New(path).Option("missingkey=error").Parse(strings.TrimSpace(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template body: %w", err)
	}

	return &Prompt{
		Name:     path,
		Config:   config,
		Template: tmpl,
	}, nil
}

// Execute applies data to the template and returns the result string.
func (p *Prompt) Execute(data any) (string, error) {
	var buf bytes.Buffer
	if err := p.Template.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// loadPrompts loads one prompt per Kind. An override directory may replace
// any subset of the embedded files.
func loadPrompts(overrideDir fs.FS) (map[Kind]*Prompt, error) {
	prompts := make(map[Kind]*Prompt, len(kindFiles))
	for kind, file := range kindFiles {
		var (
			p   *Prompt
			err error
		)
		if overrideDir != nil {
			if _, statErr := fs.Stat(overrideDir, file); statErr == nil {
				p, err = LoadPrompt(overrideDir, file)
			}
		}
		if p == nil && err == nil {
			p, err = LoadPrompt(embeddedPrompts, "prompts/"+file)
		}
		if err != nil {
			return nil, fmt.Errorf("prompt %s: %w", kind, err)
		}
		prompts[kind] = p
	}
	return prompts, nil
}
