package crypto

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	t.Parallel()

	blob, err := EncryptKey(testKeyHex, "hunter2")
	require.NoError(t, err)

	got, err := DecryptKey(blob, "hunter2")
	require.NoError(t, err)
	require.Equal(t, testKeyHex, got)
}

func TestEncryptKeyStripsPrefix(t *testing.T) {
	t.Parallel()

	blob, err := EncryptKey("0x"+testKeyHex, "hunter2")
	require.NoError(t, err)

	got, err := DecryptKey(blob, "hunter2")
	require.NoError(t, err)
	require.Equal(t, testKeyHex, got)
}

func TestEncryptKeyRejectsBadInput(t *testing.T) {
	t.Parallel()

	_, err := EncryptKey(testKeyHex, "")
	require.Error(t, err)

	_, err = EncryptKey("zzzz", "hunter2")
	require.Error(t, err)

	_, err = EncryptKey("abcd", "hunter2") // valid hex, wrong length
	require.Error(t, err)
}

func TestDecryptKeyWrongPassword(t *testing.T) {
	t.Parallel()

	blob, err := EncryptKey(testKeyHex, "hunter2")
	require.NoError(t, err)

	_, err = DecryptKey(blob, "wrong")
	require.Error(t, err)
	require.Contains(t, err.Error(), "decryption failed")
}

func TestDecryptKeyUnsupportedVersion(t *testing.T) {
	t.Parallel()

	blob, err := EncryptKey(testKeyHex, "hunter2")
	require.NoError(t, err)
	tampered := strings.Replace(string(blob), `"version": 1`, `"version": 9`, 1)

	_, err = DecryptKey([]byte(tampered), "hunter2")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported version")
}

func TestLoadKey(t *testing.T) {
	t.Parallel()

	t.Run("raw key wins", func(t *testing.T) {
		t.Parallel()
		got, err := LoadKey(KeyConfig{RawPrivateKey: "0x" + testKeyHex})
		require.NoError(t, err)
		require.Equal(t, testKeyHex, got)
	})

	t.Run("raw key must be hex", func(t *testing.T) {
		t.Parallel()
		_, err := LoadKey(KeyConfig{RawPrivateKey: "not-hex"})
		require.Error(t, err)
	})

	t.Run("encrypted file", func(t *testing.T) {
		t.Parallel()
		blob, err := EncryptKey(testKeyHex, "hunter2")
		require.NoError(t, err)

		path := filepath.Join(t.TempDir(), "operator.json")
		require.NoError(t, os.WriteFile(path, blob, 0o600))

		got, err := LoadKey(KeyConfig{EncryptedKeyPath: path, KeyPassword: "hunter2"})
		require.NoError(t, err)
		require.Equal(t, testKeyHex, got)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := LoadKey(KeyConfig{EncryptedKeyPath: "/does/not/exist", KeyPassword: "x"})
		require.Error(t, err)
	})

	t.Run("no source configured", func(t *testing.T) {
		t.Parallel()
		_, err := LoadKey(KeyConfig{})
		require.Error(t, err)
	})
}
