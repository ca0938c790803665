package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	for _, key := range []string{"0123456789abcdef0123456789abcdef", "short-secret"} {
		sealed, err := Encrypt([]byte("oauth-token"), []byte(key))
		require.NoError(t, err)
		require.NotContains(t, sealed, "oauth-token")

		plain, err := Decrypt(sealed, []byte(key))
		require.NoError(t, err)
		require.Equal(t, "oauth-token", plain)
	}
}

func TestDecryptWrongKey(t *testing.T) {
	sealed, err := Encrypt([]byte("oauth-token"), []byte("key-one"))
	require.NoError(t, err)

	_, err = Decrypt(sealed, []byte("key-two"))
	require.Error(t, err)
}

func TestDecryptShortInput(t *testing.T) {
	_, err := Decrypt("YWJj", []byte("key"))
	require.ErrorIs(t, err, ErrCiphertextTooShort)
}
