package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var workbookExts = []string{".xlsx", ".xlsm", ".xls"}

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	return p
}

func names(files []FileInfo) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Name)
	}
	return out
}

func TestDiscovery_IsWorkbook(t *testing.T) {
	d := NewDiscovery("", []string{".XLSX", ".xls"})

	tests := []struct {
		name string
		want bool
	}{
		{"plant.xlsx", true},
		{"PLANT.XLSX", true},
		{"legacy.xls", true},
		{"macro.xlsm", false},
		{"~$plant.xlsx", false},
		{"notes.csv", false},
		{"xlsx", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.IsWorkbook(tt.name))
		})
	}
}

func TestDiscovery_FindWorkbooks(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "b.xlsx")
	touch(t, dir, "a.xls")
	touch(t, dir, "~$b.xlsx")
	touch(t, dir, "readme.txt")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.xlsx"), 0o755))

	d := NewDiscovery("", workbookExts)
	found, err := d.FindWorkbooks(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.xls", "b.xlsx"}, names(found))
	assert.Equal(t, filepath.Join(dir, "a.xls"), found[0].Path)

	_, err = d.FindWorkbooks(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestDiscovery_Collect(t *testing.T) {
	base := t.TempDir()
	inDir := filepath.Join(base, "in")
	require.NoError(t, os.Mkdir(inDir, 0o755))
	touch(t, inDir, "one.xlsx")
	touch(t, inDir, "two.xlsm")
	touch(t, base, "three.xlsx")
	touch(t, base, "notes.csv")

	d := NewDiscovery(base, workbookExts)

	found, err := d.Collect("in", "three.xlsx", filepath.Join(inDir, "one.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, []string{"one.xlsx", "two.xlsm", "three.xlsx"}, names(found))

	_, err = d.Collect("notes.csv")
	assert.ErrorContains(t, err, "not a workbook")

	_, err = d.Collect("nowhere")
	assert.Error(t, err)
}
