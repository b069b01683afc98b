package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSecretBox(t *testing.T) {
	t.Parallel()

	box, err := NewSecretBox("0123456789abcdef-test-secret")
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		msg := `Thanks {Name:1}! <a href="/x">Back</a>`
		token, err := box.Encrypt(msg)
		require.NoError(t, err)
		require.NotContains(t, token, "Thanks")

		plain, err := box.Decrypt(token)
		require.NoError(t, err)
		require.Equal(t, msg, plain)
	})

	t.Run("nonces differ", func(t *testing.T) {
		a, err := box.Encrypt("same")
		require.NoError(t, err)
		b, err := box.Encrypt("same")
		require.NoError(t, err)
		require.NotEqual(t, a, b)
	})

	t.Run("tampered token", func(t *testing.T) {
		token, err := box.Encrypt("hello")
		require.NoError(t, err)

		last := token[len(token)-1]
		swap := byte('A')
		if last == 'A' {
			swap = 'B'
		}
		_, err = box.Decrypt(token[:len(token)-1] + string(swap))
		require.Error(t, err)
	})

	t.Run("wrong key", func(t *testing.T) {
		other, err := NewSecretBox("another-secret-value-123")
		require.NoError(t, err)

		token, err := box.Encrypt("hello")
		require.NoError(t, err)
		_, err = other.Decrypt(token)
		require.ErrorIs(t, err, ErrDecrypt)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := box.Decrypt("!!")
		require.ErrorIs(t, err, ErrMalformed)
		_, err = box.Decrypt(strings.Repeat("A", 10))
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("short secret", func(t *testing.T) {
		_, err := NewSecretBox("short")
		require.Error(t, err)
	})
}
