package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTaxonomy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taxonomy.yaml")
	content := []byte(`
sectors:
  - name: Marine Robotics
    description: Underwater and surface vessels
    subcategories:
      - ROVs
      - AUVs
dimensions:
  - name: market_size
    unit: USD billions
    description: Total addressable market size
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	tax, err := LoadTaxonomy(path)
	require.NoError(t, err)
	require.Len(t, tax.Sectors, 1)
	assert.Equal(t, "Marine Robotics", tax.Sectors[0].Name)
	assert.Equal(t, []string{"ROVs", "AUVs"}, tax.Sectors[0].Subcategories)
	require.Len(t, tax.Dimensions, 1)
	assert.Equal(t, "USD billions", tax.Dimensions[0].Unit)
}

func TestLoadTaxonomy_Missing(t *testing.T) {
	_, err := LoadTaxonomy(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadTaxonomy_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o644))

	_, err := LoadTaxonomy(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sectors or dimensions")
}

func TestDefaultTaxonomy(t *testing.T) {
	tax := DefaultTaxonomy()
	assert.Len(t, tax.Sectors, 6)
	assert.Len(t, tax.Dimensions, 10)
	for _, sec := range tax.Sectors {
		assert.NotEmpty(t, sec.Subcategories, sec.Name)
	}
}
