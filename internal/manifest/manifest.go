// Package manifest loads the package manifest (lily.yaml): the name, direct
// library dependencies, and output directory a build invocation needs
// before it can resolve imports (spec.md §6 "CLI option model ... external
// collaborator").
//
// Grounded on the teacher's internal/manifest package (Manifest/Load/Save/
// Validate shape), adapted from ailang's example-status tracking manifest
// (working/broken/experimental test examples) to Lily's package manifest
// (name, dependencies, output directory) since spec.md's manifest
// collaborator configures a build, not a test corpus.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SchemaVersion is the manifest schema tag stamped into every lily.yaml.
const SchemaVersion = "lily.manifest/v1"

// Dependency is one library dependency entry: a name resolvable against
// the precompiler's library root (spec.md §4.2 "library root") and the
// filesystem path or registry reference it maps to.
type Dependency struct {
	Name string `yaml:"name"`
	Path string `yaml:"path,omitempty"`
	URL  string `yaml:"url,omitempty"`
}

// Manifest is the parsed contents of lily.yaml.
type Manifest struct {
	Schema       string       `yaml:"schema"`
	Name         string       `yaml:"name"`
	Version      string       `yaml:"version,omitempty"`
	Main         string       `yaml:"main"`
	OutputDir    string       `yaml:"output_dir,omitempty"`
	SearchPaths  []string     `yaml:"search_paths,omitempty"`
	Dependencies []Dependency `yaml:"dependencies,omitempty"`

	dir string // directory the manifest was loaded from, for path resolution
}

// New creates a manifest with defaults for a package named name.
func New(name string) *Manifest {
	return &Manifest{Schema: SchemaVersion, Name: name, Main: "main.lily", OutputDir: "build"}
}

// Load reads and validates a manifest from path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	m.dir = filepath.Dir(path)

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("manifest validation failed: %w", err)
	}
	return &m, nil
}

// Save writes the manifest to path as YAML.
func (m *Manifest) Save(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the manifest for the fields a build invocation requires.
func (m *Manifest) Validate() error {
	if m.Schema == "" {
		return fmt.Errorf("missing schema")
	}
	if m.Name == "" {
		return fmt.Errorf("missing package name")
	}
	if m.Main == "" {
		return fmt.Errorf("missing main entry file")
	}

	seen := make(map[string]bool)
	for _, d := range m.Dependencies {
		if d.Name == "" {
			return fmt.Errorf("dependency missing name")
		}
		if seen[d.Name] {
			return fmt.Errorf("duplicate dependency: %s", d.Name)
		}
		seen[d.Name] = true
		if d.Path == "" && d.URL == "" {
			return fmt.Errorf("dependency %q has neither path nor url", d.Name)
		}
	}
	return nil
}

// MainPath resolves the Main entry file relative to the manifest's
// directory.
func (m *Manifest) MainPath() string {
	if filepath.IsAbs(m.Main) {
		return m.Main
	}
	return filepath.Join(m.dir, m.Main)
}

// ResolveOutputDir resolves OutputDir relative to the manifest's directory,
// defaulting to "build" when unset.
func (m *Manifest) ResolveOutputDir() string {
	dir := m.OutputDir
	if dir == "" {
		dir = "build"
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(m.dir, dir)
}

// FindDependency locates a declared dependency by name.
func (m *Manifest) FindDependency(name string) (Dependency, bool) {
	for _, d := range m.Dependencies {
		if d.Name == name {
			return d, true
		}
	}
	return Dependency{}, false
}

// ResolveSearchPaths resolves every SearchPaths entry relative to the
// manifest's directory, used by the precompiler when resolving file-root
// imports (spec.md §4.2 "file root").
func (m *Manifest) ResolveSearchPaths() []string {
	out := make([]string, len(m.SearchPaths))
	for i, p := range m.SearchPaths {
		if filepath.IsAbs(p) {
			out[i] = p
		} else {
			out[i] = filepath.Join(m.dir, p)
		}
	}
	return out
}
