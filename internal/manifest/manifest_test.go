package manifest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewManifest(t *testing.T) {
	m := New("demo")
	require.Equal(t, SchemaVersion, m.Schema)
	require.Equal(t, "demo", m.Name)
	require.Equal(t, "main.lily", m.Main)
}

func TestManifestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Manifest)
		wantErr string
	}{
		{name: "valid", modify: func(m *Manifest) {}},
		{name: "missing name", modify: func(m *Manifest) { m.Name = "" }, wantErr: "missing package name"},
		{name: "missing main", modify: func(m *Manifest) { m.Main = "" }, wantErr: "missing main entry file"},
		{
			name: "duplicate dependency",
			modify: func(m *Manifest) {
				m.Dependencies = []Dependency{
					{Name: "json", Path: "./vendor/json"},
					{Name: "json", Path: "./other"},
				}
			},
			wantErr: "duplicate dependency",
		},
		{
			name: "dependency missing locator",
			modify: func(m *Manifest) {
				m.Dependencies = []Dependency{{Name: "json"}}
			},
			wantErr: "neither path nor url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New("demo")
			tt.modify(m)
			err := m.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestManifestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lily.yaml")

	m := New("demo")
	m.Dependencies = []Dependency{{Name: "http", Path: "./libs/http"}}
	m.SearchPaths = []string{"src"}
	require.NoError(t, m.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "demo", loaded.Name)
	require.Len(t, loaded.Dependencies, 1)
	require.Equal(t, filepath.Join(dir, "src"), loaded.ResolveSearchPaths()[0])
	require.Equal(t, filepath.Join(dir, "main.lily"), loaded.MainPath())
	require.Equal(t, filepath.Join(dir, "build"), loaded.ResolveOutputDir())
}

func TestFindDependency(t *testing.T) {
	m := New("demo")
	m.Dependencies = []Dependency{{Name: "http", URL: "https://example.com/http"}}

	dep, ok := m.FindDependency("http")
	require.True(t, ok)
	require.Equal(t, "https://example.com/http", dep.URL)

	_, ok = m.FindDependency("missing")
	require.False(t, ok)
}
