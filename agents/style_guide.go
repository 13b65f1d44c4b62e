package agents

import (
	"fmt"
	"os"
	"sync"
)

// StyleGuide reads the style guide file once and serves the cached text.
// A failed read is remembered and returned to every caller.
type StyleGuide struct {
	path string

	once sync.Once
	text string
	err  error
}

// NewStyleGuide creates a lazily loaded style guide.
func NewStyleGuide(path string) *StyleGuide {
	return &StyleGuide{path: path}
}

// NewStyleGuideFromText creates a style guide that never touches disk.
func NewStyleGuideFromText(text string) *StyleGuide {
	g := &StyleGuide{text: text}
	g.once.Do(func() {})
	return g
}

// Text returns the style guide contents.
func (g *StyleGuide) Text() (string, error) {
	g.once.Do(func() {
		data, err := os.ReadFile(g.path)
		if err != nil {
			g.err = fmt.Errorf("agents: read style guide: %w", err)
			return
		}
		g.text = string(data)
	})
	return g.text, g.err
}

// Path returns the file the guide is read from; empty for in-memory guides.
func (g *StyleGuide) Path() string {
	return g.path
}
