package relationship

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/nlquery/analyst/internal/errors"
)

// Store persists manually declared relationships in a YAML overlay file,
// grouped by schema. Edges loaded from the store carry OriginYAML.
type Store struct {
	path string
}

type overlayFile struct {
	Schemas map[string][]Relationship `yaml:"schemas"`
}

// NewStore returns a store backed by the given file path. The file is
// created lazily on first Add.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// List returns the overlay relationships for a schema. A missing file is
// an empty overlay, not an error.
func (s *Store) List(schema string) ([]Relationship, error) {
	file, err := s.load()
	if err != nil {
		return nil, err
	}

	rels := file.Schemas[schema]
	for i := range rels {
		rels[i].Origin = OriginYAML
	}

	return rels, nil
}

// Add upserts a relationship for a schema, keyed by the source→target
// column pair. Re-adding an existing edge replaces its description.
func (s *Store) Add(schema string, rel Relationship) error {
	file, err := s.load()
	if err != nil {
		return err
	}

	rel.Origin = OriginYAML

	rels := file.Schemas[schema]
	replaced := false

	for i := range rels {
		if rels[i].Key() == rel.Key() {
			rels[i] = rel
			replaced = true

			break
		}
	}

	if !replaced {
		rels = append(rels, rel)
	}

	if file.Schemas == nil {
		file.Schemas = make(map[string][]Relationship)
	}
	file.Schemas[schema] = rels

	return s.save(file)
}

// Delete removes the relationship matching the given edge's identity
// key. Deleting an absent edge is a no-op.
func (s *Store) Delete(schema string, rel Relationship) error {
	file, err := s.load()
	if err != nil {
		return err
	}

	rels := file.Schemas[schema]
	kept := rels[:0]

	for _, existing := range rels {
		if existing.Key() != rel.Key() {
			kept = append(kept, existing)
		}
	}

	if len(kept) == len(rels) {
		return nil
	}

	file.Schemas[schema] = kept

	return s.save(file)
}

func (s *Store) load() (*overlayFile, error) {
	file := &overlayFile{Schemas: make(map[string][]Relationship)}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return file, nil
	}

	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeConfig, "failed to read relationships file %s", s.path)
	}

	if err := yaml.Unmarshal(data, file); err != nil {
		return nil, errors.Wrapf(err, errors.ErrTypeConfig, "failed to parse relationships file %s", s.path)
	}

	if file.Schemas == nil {
		file.Schemas = make(map[string][]Relationship)
	}

	return file, nil
}

func (s *Store) save(file *overlayFile) error {
	data, err := yaml.Marshal(file)
	if err != nil {
		return errors.Wrap(err, errors.ErrTypeInternal, "failed to serialize relationships")
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, errors.ErrTypeConfig, "failed to create directory %s", dir)
		}
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return errors.Wrapf(err, errors.ErrTypeConfig, "failed to write relationships file %s", s.path)
	}

	return nil
}
