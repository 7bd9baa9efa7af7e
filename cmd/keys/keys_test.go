package keys

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"signalexecutor/src/security"
)

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

func TestEncryptFromStdinRoundTrips(t *testing.T) {
	key, err := security.GenerateKey()
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, Encrypt(&out, strings.NewReader("  my-mudrex-secret \n"), key, ""))

	plain, err := security.DecryptString(key, lastLine(out.String()))
	require.NoError(t, err)
	require.Equal(t, "my-mudrex-secret", plain)
}

func TestEncryptErrors(t *testing.T) {
	key, err := security.GenerateKey()
	require.NoError(t, err)

	var out bytes.Buffer
	require.ErrorIs(t, Encrypt(&out, strings.NewReader(""), key, ""), ErrEmptySecret)
	require.ErrorIs(t, Encrypt(&out, nil, "not-a-key", "secret"), security.ErrInvalidKey)
}

func TestGeneratePrintsUsableKey(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, Generate(&out))

	var key string
	for _, line := range strings.Split(out.String(), "\n") {
		if _, err := security.ParseKey(line); err == nil {
			key = line
		}
	}
	if key == "" {
		t.Fatalf("no key found in output: %s", out.String())
	}
	require.Contains(t, out.String(), "export CREDENTIALS_KEY="+key)
}
