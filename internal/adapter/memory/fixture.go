package memory

import (
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/weather-fx-panel/internal/scene"
	"gopkg.in/yaml.v3"
)

// Fixture is a scene snapshot used to seed the store.
type Fixture struct {
	Selection []string     `yaml:"selection"`
	Items     []scene.Item `yaml:"items"`
}

// LoadFixture decodes a YAML fixture and seeds the store with it.
func (s *Store) LoadFixture(r io.Reader) error {
	var f Fixture
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return fmt.Errorf("decode scene fixture: %w", err)
	}
	for i, it := range f.Items {
		if it.ID == "" {
			return fmt.Errorf("scene fixture item %d: missing id", i)
		}
	}
	s.Put(f.Items...)
	s.SetSelection(f.Selection)
	return nil
}

// LoadFixtureFile seeds the store from the YAML file at path.
func (s *Store) LoadFixtureFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open scene fixture: %w", err)
	}
	defer f.Close()
	return s.LoadFixture(f)
}
