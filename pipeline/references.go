package pipeline

import (
	"context"

	"diagramgen/core"
)

// ReferenceSource finds reference diagrams relevant to a brief. It returns
// the category of the best match (may be empty) and at most n references.
type ReferenceSource interface {
	Retrieve(ctx context.Context, brief string, n int) (category string, refs []core.Reference, err error)
}

// NoReferences is a ReferenceSource that never finds anything.
type NoReferences struct{}

// Retrieve returns no category and no references.
func (NoReferences) Retrieve(ctx context.Context, brief string, n int) (string, []core.Reference, error) {
	return "", nil, nil
}

// StaticReferences always returns the same category and references,
// truncated to n.
type StaticReferences struct {
	Category   string
	References []core.Reference
}

// Retrieve returns up to n of the configured references.
func (s StaticReferences) Retrieve(ctx context.Context, brief string, n int) (string, []core.Reference, error) {
	refs := s.References
	if n >= 0 && len(refs) > n {
		refs = refs[:n]
	}
	return s.Category, refs, nil
}
