package blobfs_test

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bromapp/flostore/internal/blobfs"
	"github.com/bromapp/flostore/pkg/flo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSRoundTrip(t *testing.T) {
	store := blobfs.NewOS()
	path := blobfs.UserPath(t.TempDir(), "42")

	_, ok, err := store.Get(path)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(path, `{"journal":{}}`))

	text, ok, err := store.Get(path)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"journal":{}}`, text)
}

func TestOSSetCreatesParentDirectories(t *testing.T) {
	store := blobfs.NewOS()
	path := blobfs.UserPath(filepath.Join(t.TempDir(), "nested", "deep"), "42")

	require.NoError(t, store.Set(path, "content"))

	text, ok, err := store.Get(path)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "content", text)
}

func TestOSGetBase64Fallback(t *testing.T) {
	dir := t.TempDir()
	path := blobfs.UserPath(dir, "42")

	raw := []byte{0xFF, 0xFE, 'a', 'b'}
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	text, ok, err := blobfs.NewOS().Get(path)
	require.NoError(t, err)
	assert.True(t, ok)
	require.True(t, strings.HasPrefix(text, flo.Base64Marker))

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(text, flo.Base64Marker))
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)
}

func TestOSDeleteIdempotent(t *testing.T) {
	store := blobfs.NewOS()
	path := blobfs.UserPath(t.TempDir(), "42")

	require.NoError(t, store.Set(path, "content"))
	require.NoError(t, store.Delete(path))
	require.NoError(t, store.Delete(path))

	_, ok, err := store.Get(path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPaths(t *testing.T) {
	assert.Equal(t, filepath.Join("base", "user-42.flo"), blobfs.UserPath("base", "42"))
	assert.Equal(t, filepath.Join("base", "flodata.flo"), blobfs.LegacyPath("base"))
}
