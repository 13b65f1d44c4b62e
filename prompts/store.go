// Package prompts loads the agent prompt templates from a YAML table and
// renders their {name} placeholders.
package prompts

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"diagramgen/core"
)

// Template names shipped in config/prompts.yaml.
const (
	TemplatePlanner = "planner"
	TemplateStylist = "stylist"
	TemplateCritic  = "critic"
)

var (
	// ErrTemplateNotFound is returned when a template name is absent from the table.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrMissingPlaceholder is returned when a template references a variable
	// that was not supplied.
	ErrMissingPlaceholder = errors.New("missing placeholder")

	// ErrMalformedTemplate is returned for unbalanced braces.
	ErrMalformedTemplate = errors.New("malformed template")
)

// TemplateError describes a render failure. It matches its Kind and
// core.ErrValidation with errors.Is; render failures are never retried.
type TemplateError struct {
	Kind        error
	Template    string
	Placeholder string
	Provided    []string
}

func (e *TemplateError) Error() string {
	switch e.Kind {
	case ErrMissingPlaceholder:
		return fmt.Sprintf("prompts: missing placeholder {%s} for template %q (provided: %s)",
			e.Placeholder, e.Template, strings.Join(e.Provided, ", "))
	case ErrMalformedTemplate:
		return fmt.Sprintf("prompts: malformed template %q: %s", e.Template, e.Placeholder)
	default:
		return fmt.Sprintf("prompts: template %q not found", e.Template)
	}
}

// Is matches the error kind and the validation class.
func (e *TemplateError) Is(target error) bool {
	return target == e.Kind || target == core.ErrValidation
}

// Store is a process-wide template table loaded once on first use.
// A restart is required to pick up edits.
type Store struct {
	path string

	once      sync.Once
	templates map[string]string
	loadErr   error
}

// NewStore returns a store backed by the YAML file at path. Nothing is read
// until the first Render or Names call.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// NewStoreFromMap returns a store over an in-memory table.
func NewStoreFromMap(templates map[string]string) *Store {
	s := &Store{templates: make(map[string]string, len(templates))}
	for k, v := range templates {
		s.templates[k] = v
	}
	s.once.Do(func() {})
	return s
}

func (s *Store) load() error {
	s.once.Do(func() {
		data, err := os.ReadFile(s.path)
		if err != nil {
			s.loadErr = fmt.Errorf("prompts: failed to read %s: %w", s.path, err)
			return
		}

		var table map[string]string
		if err := yaml.Unmarshal(data, &table); err != nil {
			s.loadErr = fmt.Errorf("prompts: failed to parse %s: %w", s.path, err)
			return
		}
		s.templates = table
	})
	return s.loadErr
}

// Names lists the template keys in sorted order.
func (s *Store) Names() ([]string, error) {
	if err := s.load(); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(s.templates))
	for name := range s.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Require reports the first of names that is absent from the table.
func (s *Store) Require(names ...string) error {
	if err := s.load(); err != nil {
		return err
	}
	for _, name := range names {
		if _, ok := s.templates[name]; !ok {
			return &TemplateError{Kind: ErrTemplateNotFound, Template: name}
		}
	}
	return nil
}

// Render substitutes vars into the named template. Extra vars are ignored.
func (s *Store) Render(name string, vars map[string]string) (string, error) {
	if err := s.load(); err != nil {
		return "", err
	}

	tmpl, ok := s.templates[name]
	if !ok {
		return "", &TemplateError{Kind: ErrTemplateNotFound, Template: name}
	}
	return render(name, tmpl, vars)
}
