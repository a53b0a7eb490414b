// Command validate performs integrity checks on a scene fixture before it is
// used to seed the in-memory host: item identity, selection references, and
// the shape of every stored weather record.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -fixture internal/adapter/memory/testdata/scene.yaml \
//	  -plugin-id rodeo.owlbear.weather
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/couchcryptid/weather-fx-panel/internal/adapter/memory"
	"github.com/couchcryptid/weather-fx-panel/internal/domain"
	"gopkg.in/yaml.v3"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	fixturePath := flag.String("fixture", "", "path to a YAML scene fixture")
	pluginID := flag.String("plugin-id", "rodeo.owlbear.weather", "plugin id that namespaces the metadata key")
	strict := flag.Bool("strict", false, "treat foreign values under the metadata key as errors")
	flag.Parse()

	if *fixturePath == "" || *pluginID == "" {
		flag.Usage()
		os.Exit(1)
	}

	os.Exit(run(*fixturePath, domain.MetadataKey(*pluginID), *strict))
}

func run(path, key string, strict bool) int {
	fmt.Println("=== Scene Fixture Validation ===")
	fmt.Println()

	fixture, err := loadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load fixture: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateIdentity(fixture),
		validateSelection(fixture),
		validateRecords(fixture, key, strict),
		validateDirections(fixture, key),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	withRecord := 0
	for _, it := range fixture.Items {
		if _, ok := it.Metadata[key]; ok {
			withRecord++
		}
	}
	fmt.Printf("Items: %d total, %d selected, %d with a value under %s\n",
		len(fixture.Items), len(fixture.Selection), withRecord, key)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadFixture(path string) (memory.Fixture, error) {
	var f memory.Fixture
	data, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("decode %s: %w", path, err)
	}
	return f, nil
}

// validateIdentity checks that every item has a unique, non-empty id.
func validateIdentity(f memory.Fixture) *phase {
	p := &phase{name: "Phase 1: Item identity"}
	seen := make(map[string]int, len(f.Items))
	for i, it := range f.Items {
		if it.ID == "" {
			p.errorf("item %d: missing id", i)
			continue
		}
		if prev, ok := seen[it.ID]; ok {
			p.errorf("item %d: id %q already used by item %d", i, it.ID, prev)
			continue
		}
		seen[it.ID] = i
	}
	return p
}

// validateSelection checks that the selection names existing items once each.
func validateSelection(f memory.Fixture) *phase {
	p := &phase{name: "Phase 2: Selection references"}
	ids := make(map[string]bool, len(f.Items))
	for _, it := range f.Items {
		ids[it.ID] = true
	}
	selected := make(map[string]bool, len(f.Selection))
	for _, id := range f.Selection {
		if !ids[id] {
			p.errorf("selection: unknown item %q", id)
		}
		if selected[id] {
			p.errorf("selection: %q listed more than once", id)
		}
		selected[id] = true
	}
	return p
}

// validateRecords checks the shape of every value stored under key.
func validateRecords(f memory.Fixture, key string, strict bool) *phase {
	p := &phase{name: "Phase 3: Weather record shape"}
	for _, it := range f.Items {
		raw, ok := it.Metadata[key]
		if !ok {
			continue
		}
		if _, isRecord := domain.AsRecord(raw); !isRecord {
			if strict {
				p.errorf("%s: foreign value %T under %s", it.ID, raw, key)
			} else {
				fmt.Printf("  note: %s holds a foreign value under %s and will be left untouched\n", it.ID, key)
			}
			continue
		}
		for _, problem := range domain.CheckRecord(raw) {
			p.errorf("%s: %s", it.ID, problem)
		}
	}
	return p
}

// validateDirections checks that stored vectors are among the eight compass
// vectors the panel writes.
func validateDirections(f memory.Fixture, key string) *phase {
	p := &phase{name: "Phase 4: Direction vectors"}
	for _, it := range f.Items {
		cfg, ok := domain.Lookup(it.Metadata, key)
		if !ok || cfg.Direction == nil {
			continue
		}
		v := *cfg.Direction
		d := domain.VectorToDirection(v)
		if canonical := domain.DirectionToVector(d); canonical != v {
			p.errorf("%s: vector (%g, %g) is not a compass vector, reads as %s (%g, %g)",
				it.ID, v.X, v.Y, d, canonical.X, canonical.Y)
		}
	}
	return p
}
