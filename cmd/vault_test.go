package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boveda/internal/vault"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("data for "+name), 0o600))
	}
}

func TestPlaintextAssetsSelection(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir,
		"photo.jpg",
		"clip.MP4",
		"memories.json",
		"whatsapp_chat.txt",
		"nested/more.png",
		"photo.jpg.enc",          // already encrypted
		"memories.example.json",  // sample data stays plaintext
		"notes.md",               // not a vault type
	)

	paths, err := plaintextAssets(dir)
	require.NoError(t, err)

	var names []string
	for _, p := range paths {
		rel, err := filepath.Rel(dir, p)
		require.NoError(t, err)
		names = append(names, filepath.ToSlash(rel))
	}
	assert.ElementsMatch(t, []string{
		"photo.jpg", "clip.MP4", "memories.json", "whatsapp_chat.txt", "nested/more.png",
	}, names)
}

func TestEncryptFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "photo.jpg")
	path := filepath.Join(dir, "photo.jpg")

	key, err := vault.GenerateKey()
	require.NoError(t, err)

	require.NoError(t, encryptFile(path, key, false))

	blob, err := os.ReadFile(path + ".enc")
	require.NoError(t, err)
	plain, err := vault.Decrypt(blob, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("data for photo.jpg"), plain)

	// Original stays unless removal was asked for.
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestEncryptFileRemovesOriginal(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "clip.mov")
	path := filepath.Join(dir, "clip.mov")

	key, err := vault.GenerateKey()
	require.NoError(t, err)

	require.NoError(t, encryptFile(path, key, true))

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(path + ".enc")
	assert.NoError(t, err)
}

func TestEncryptedAssets(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.jpg", "a.jpg.enc", "nested/b.txt.enc")

	paths, err := encryptedAssets(dir)
	require.NoError(t, err)
	assert.Len(t, paths, 2)
}
