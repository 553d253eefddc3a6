package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCredentialsFromEnvironment(t *testing.T) {
	t.Setenv("CDP_API_KEY_ID_TEST", "organizations/org/apiKeys/env-key")
	t.Setenv("CDP_PRIVATE_KEY_TEST", testPEMKey)

	creds, ok, err := LoadCredentials("CDP_API_KEY_ID_TEST", "CDP_PRIVATE_KEY_TEST", "")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "organizations/org/apiKeys/env-key", creds.KeyID)
	require.True(t, creds.IsValid())
}

func TestLoadCredentialsFromKeyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cdp_api_key.json")
	contents := `{"name": "organizations/org/apiKeys/file-key", "privateKey": ` +
		jsonQuote(testPEMKey) + `}`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	creds, ok, err := LoadCredentials("CDP_API_KEY_ID_MISSING", "CDP_PRIVATE_KEY_MISSING", path)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "organizations/org/apiKeys/file-key", creds.KeyID)
}

func TestLoadCredentialsLegacyIDField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "legacy_key.json")
	contents := `{"id": "legacy-key-id", "privateKey": ` + jsonQuote(testPEMKey) + `}`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	creds, ok, err := LoadCredentials("CDP_API_KEY_ID_MISSING", "CDP_PRIVATE_KEY_MISSING", path)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "legacy-key-id", creds.KeyID)
}

func TestLoadCredentialsFallsBackToPublicMode(t *testing.T) {
	_, ok, err := LoadCredentials("CDP_API_KEY_ID_MISSING", "CDP_PRIVATE_KEY_MISSING", "")
	require.NoError(t, err)
	require.False(t, ok)
}

func jsonQuote(s string) string {
	quoted := make([]byte, 0, len(s)+2)
	quoted = append(quoted, '"')
	for _, r := range s {
		if r == '\n' {
			quoted = append(quoted, '\\', 'n')
			continue
		}
		quoted = append(quoted, byte(r))
	}
	quoted = append(quoted, '"')
	return string(quoted)
}
