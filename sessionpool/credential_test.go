package sessionpool

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCredential(t *testing.T, dir, name, sidecar string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".session"), []byte("opaque"), 0o600))
	if sidecar != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+".json"), []byte(sidecar), 0o600))
	}
}

func TestDiscoverCredentials_ValidPair(t *testing.T) {
	dir := t.TempDir()
	writeCredential(t, dir, "alice", `{"app_id": 12345, "app_hash": "deadbeef", "phone": "+10000000000"}`)

	creds, err := DiscoverCredentials(dir, KindRealtime)
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.Equal(t, "alice", creds[0].Name)
	assert.Equal(t, KindRealtime, creds[0].Pool)
	assert.Equal(t, 12345, creds[0].AppID)
	assert.Equal(t, "deadbeef", creds[0].AppHash)
}

func TestDiscoverCredentials_MissingSidecarSkipped(t *testing.T) {
	dir := t.TempDir()
	writeCredential(t, dir, "bob", "")

	creds, err := DiscoverCredentials(dir, KindHistory)
	require.NoError(t, err)
	assert.Empty(t, creds)
}

func TestDiscoverCredentials_UnparseableSidecarSkipped(t *testing.T) {
	dir := t.TempDir()
	writeCredential(t, dir, "carol", "{not json")

	creds, err := DiscoverCredentials(dir, KindHistory)
	require.NoError(t, err)
	assert.Empty(t, creds)
}

func TestDiscoverCredentials_MissingAppFieldsSkipped(t *testing.T) {
	dir := t.TempDir()
	writeCredential(t, dir, "dave", `{"phone": "+1"}`)

	creds, err := DiscoverCredentials(dir, KindHistory)
	require.NoError(t, err)
	assert.Empty(t, creds)
}

func TestDiscoverCredentials_MissingDirectoryIsNotError(t *testing.T) {
	creds, err := DiscoverCredentials(filepath.Join(t.TempDir(), "does-not-exist"), KindRealtime)
	require.NoError(t, err)
	assert.Empty(t, creds)
}
