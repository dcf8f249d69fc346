// Package tplengine renders named text templates with the sprig function
// set. Missing keys are errors rather than "<no value>".
package tplengine

import (
	"bytes"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*template.Template
}

func NewEngine() *TemplateEngine {
	return &TemplateEngine{templates: make(map[string]*template.Template)}
}

func funcMap() template.FuncMap {
	fm := sprig.TxtFuncMap()
	fm["bullets"] = bullets
	return fm
}

// bullets renders a list as "- item" lines, skipping blank items.
func bullets(items []string) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item) != "" {
			lines = append(lines, "- "+item)
		}
	}
	return strings.Join(lines, "\n")
}

// AddTemplate parses text and registers it under name, replacing any
// template of the same name.
func (e *TemplateEngine) AddTemplate(name, text string) error {
	tmpl, err := template.New(name).Option("missingkey=error").Funcs(funcMap()).Parse(text)
	if err != nil {
		return fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	e.mu.Lock()
	e.templates[name] = tmpl
	e.mu.Unlock()
	return nil
}

// AddTemplatesFS registers every file of fsys matching pattern, named by its
// base name without extension.
func (e *TemplateEngine) AddTemplatesFS(fsys fs.FS, pattern string) error {
	files, err := fs.Glob(fsys, pattern)
	if err != nil {
		return fmt.Errorf("failed to list templates: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no templates match %q", pattern)
	}
	for _, file := range files {
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", file, err)
		}
		if err := e.AddTemplate(strings.TrimSuffix(path.Base(file), path.Ext(file)), string(data)); err != nil {
			return err
		}
	}
	return nil
}

// Require fails unless every name is registered.
func (e *TemplateEngine) Require(names ...string) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var missing []string
	for _, name := range names {
		if _, ok := e.templates[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing templates: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Render executes the named template against data. Output is trimmed.
func (e *TemplateEngine) Render(name string, data map[string]any) (string, error) {
	e.mu.RLock()
	tmpl, ok := e.templates[name]
	e.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("template not found: %s", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("template execution error: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
