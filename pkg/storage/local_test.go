package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalArchive(t *testing.T) {
	src := filepath.Join(t.TempDir(), "enero.csv")
	require.NoError(t, os.WriteFile(src, []byte("DESADU\tADUANA\n"), 0o644))

	base := t.TempDir()
	archive, err := NewLocalArchive(base)
	require.NoError(t, err)
	archive.now = func() time.Time {
		return time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	}

	dest, err := archive.Archive(context.Background(), src)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(dest, filepath.Join(base, "2024", "03")))
	assert.True(t, strings.HasSuffix(dest, "-enero.csv"))

	copied, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "DESADU\tADUANA\n", string(copied))

	// A second archive of the same file gets a distinct name.
	dest2, err := archive.Archive(context.Background(), src)
	require.NoError(t, err)
	assert.NotEqual(t, dest, dest2)
}

func TestLocalArchive_MissingSource(t *testing.T) {
	archive, err := NewLocalArchive(t.TempDir())
	require.NoError(t, err)

	_, err = archive.Archive(context.Background(), "/no/existe.csv")
	require.Error(t, err)
}
