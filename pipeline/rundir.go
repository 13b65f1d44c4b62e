package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"diagramgen/core"
)

// Artifact file names inside a run directory.
const (
	MetadataFile = "run_metadata.json"
)

// RoundStyledFile names the styled description written for round n.
func RoundStyledFile(n int) string {
	return fmt.Sprintf("round_%d_styled.txt", n)
}

// RoundImageFile names the image written for round n.
func RoundImageFile(n int) string {
	return fmt.Sprintf("round_%d_image.png", n)
}

// FinalImageFile names the slide-adapted image for format.
func FinalImageFile(format string) string {
	return fmt.Sprintf("final_%s.png", format)
}

// RunStore creates uniquely named run directories under an output root.
type RunStore struct {
	root  string
	now   func() time.Time
	newID func() string
}

// NewRunStore creates a store rooted at dir.
func NewRunStore(dir string) *RunStore {
	return &RunStore{
		root:  dir,
		now:   time.Now,
		newID: func() string { return uuid.NewString()[:8] },
	}
}

// Root returns the output root.
func (s *RunStore) Root() string {
	return s.root
}

// Create makes a new `<YYYYMMDD_HHMMSS>_<id8>` directory.
func (s *RunStore) Create() (*RunDir, error) {
	id := fmt.Sprintf("%s_%s", s.now().Format("20060102_150405"), s.newID())
	path := filepath.Join(s.root, id)
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("pipeline: create run directory: %w", err)
	}
	return &RunDir{ID: id, Path: path}, nil
}

// RunDir is one run's working directory. It is owned by a single run.
type RunDir struct {
	ID   string
	Path string
}

// WriteRound persists the styled description and image of round n.
func (d *RunDir) WriteRound(n int, styled string, image []byte) error {
	if err := d.write(RoundStyledFile(n), []byte(styled)); err != nil {
		return err
	}
	return d.write(RoundImageFile(n), image)
}

// WriteFinal persists the adapted image and returns its path.
func (d *RunDir) WriteFinal(format string, image []byte) (string, error) {
	name := FinalImageFile(format)
	if err := d.write(name, image); err != nil {
		return "", err
	}
	return filepath.Join(d.Path, name), nil
}

// WriteMetadata persists meta as indented JSON.
func (d *RunDir) WriteMetadata(meta core.RunMetadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("pipeline: encode metadata: %w", err)
	}
	return d.write(MetadataFile, data)
}

// ReadMetadata loads run_metadata.json from the directory.
func (d *RunDir) ReadMetadata() (core.RunMetadata, error) {
	var meta core.RunMetadata
	data, err := os.ReadFile(filepath.Join(d.Path, MetadataFile))
	if err != nil {
		return meta, fmt.Errorf("pipeline: read metadata: %w", err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("pipeline: decode metadata: %w", err)
	}
	return meta, nil
}

func (d *RunDir) write(name string, data []byte) error {
	if err := os.WriteFile(filepath.Join(d.Path, name), data, 0644); err != nil {
		return fmt.Errorf("pipeline: write %s: %w", name, err)
	}
	return nil
}
