package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/ansfeed/internal/testutil"
	"github.com/leapstack-labs/ansfeed/pkg/core"
)

func records() []core.Record {
	return []core.Record{
		{RegistrationID: "1", TaxID: "11222333000181", Quarter: 1, Year: 2024, Amount: decimal.NewFromInt(10)},
		{RegistrationID: "2", Amount: decimal.RequireFromString("-3.5")},
	}
}

func TestFileMiss(t *testing.T) {
	c := NewFile(filepath.Join(t.TempDir(), "consolidated.csv"), testutil.NewTestLogger(t))

	got, ok, err := c.Load()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestFileStoreLoad(t *testing.T) {
	c := NewFile(filepath.Join(t.TempDir(), "out", "consolidated.csv"), testutil.NewTestLogger(t))

	require.NoError(t, c.Store(records()))
	got, ok, err := c.Load()

	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.True(t, records()[1].Equal(got[1]))
	assert.FileExists(t, c.Path+".sha256")
}

func TestFileStoreReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	c := NewFile(filepath.Join(dir, "consolidated.csv"), testutil.NewTestLogger(t))

	require.NoError(t, c.Store(records()))
	require.NoError(t, c.Store(records()[:1]))

	got, ok, err := c.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, got, 1)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"consolidated.csv", "consolidated.csv.sha256"}, names, "no temp files left behind")
}

func TestFileTamperedContentIsMiss(t *testing.T) {
	c := NewFile(filepath.Join(t.TempDir(), "consolidated.csv"), testutil.NewTestLogger(t))
	require.NoError(t, c.Store(records()))

	f, err := os.OpenFile(c.Path, os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, err = f.WriteString("3,,,,,1\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, ok, err := c.Load()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, c.verify(mustRead(t, c.Path)), ErrChecksumMismatch)
}

func TestFileWithoutChecksumIsMiss(t *testing.T) {
	c := NewFile(filepath.Join(t.TempDir(), "consolidated.csv"), testutil.NewTestLogger(t))
	require.NoError(t, c.Store(records()))
	require.NoError(t, os.Remove(c.Path+".sha256"))

	_, ok, err := c.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileInvalidate(t *testing.T) {
	c := NewFile(filepath.Join(t.TempDir(), "consolidated.csv"), nil)
	require.NoError(t, c.Store(records()))

	require.NoError(t, c.Invalidate())
	require.NoError(t, c.Invalidate(), "invalidating twice is fine")

	assert.NoFileExists(t, c.Path)
	_, ok, err := c.Load()
	require.NoError(t, err)
	assert.False(t, ok)
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}
