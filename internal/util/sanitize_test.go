package util

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestSanitizeUploadName(t *testing.T) {
	t.Parallel()

	t.Run("replaces unsafe characters", func(t *testing.T) {
		actual, err := SanitizeUploadName(` my avatar<2026>?.png `)
		require.NoError(t, err)
		require.Equal(t, "my-avatar_2026__.png", actual)
	})

	t.Run("drops directories", func(t *testing.T) {
		actual, err := SanitizeUploadName(`C:\Users\ada\..\photo.jpg`)
		require.NoError(t, err)
		require.Equal(t, "photo.jpg", actual)

		actual, err = SanitizeUploadName("../../etc/passwd")
		require.NoError(t, err)
		require.Equal(t, "passwd", actual)
	})

	t.Run("rejects empty and hidden names", func(t *testing.T) {
		for _, name := range []string{"   ", ".env", "..", "\u200B\u200C", "a\x00b.png"} {
			_, err := SanitizeUploadName(name)
			require.Error(t, err, name)
		}
	})

	t.Run("rejects reserved names", func(t *testing.T) {
		_, err := SanitizeUploadName("con.txt")
		require.Error(t, err)
	})

	t.Run("strips invisible characters", func(t *testing.T) {
		actual, err := SanitizeUploadName("file\u200B\u200D\uFEFFname.txt")
		require.NoError(t, err)
		require.Equal(t, "filename.txt", actual)
	})

	t.Run("shortens long names keeping the extension", func(t *testing.T) {
		actual, err := SanitizeUploadName(strings.Repeat("é", 260) + ".pdf")
		require.NoError(t, err)
		require.Len(t, []rune(actual), maxFilenameRunes)
		require.True(t, strings.HasSuffix(actual, ".pdf"))
		require.True(t, utf8.ValidString(actual))
	})
}
