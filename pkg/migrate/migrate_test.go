package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestEmbeddedSourceMatchesRepoDir(t *testing.T) {
	fsys, err := Source(DefaultDir)
	require.NoError(t, err)
	embedded, err := fs.Glob(fsys, "*.sql")
	require.NoError(t, err)

	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	require.Len(t, embedded, len(onDisk))
	for _, p := range onDisk {
		assert.Contains(t, embedded, filepath.Base(p))
	}
	require.NoError(t, validateFS(fsys))
}

func TestValidateReportsEveryProblem(t *testing.T) {
	up := "-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n"
	fsys := fstest.MapFS{
		"20260301090000_ok.sql":      {Data: []byte(up)},
		"20260301090000_dupe.sql":    {Data: []byte(up)},
		"bad-name.sql":               {Data: []byte(up)},
		"20260301090100_no_down.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")},
		"README.md":                  {Data: []byte("ignored")},
	}

	err := validateFS(fsys)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 3)
	assert.Contains(t, err.Error(), "already used")
	assert.Contains(t, err.Error(), "bad-name.sql")
	assert.Contains(t, err.Error(), "-- +goose Down")
}

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("20260301090300")
	require.NoError(t, err)
	assert.EqualValues(t, 20260301090300, v)

	for _, raw := range []string{"", "2026", "2026030109030x", "202603010903000"} {
		_, err := ParseVersion(raw)
		assert.Error(t, err, raw)
	}
}

func TestCreateSQLMigrationWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "  Add Listing Index!  ")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_listing_index.sql"), path)

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), "-- +goose Up")
	assert.Contains(t, string(body), "-- rollback add_listing_index")
	require.NoError(t, ValidateDir(dir))

	_, err = CreateSQLMigration(dir, "!!!")
	require.Error(t, err)
}
