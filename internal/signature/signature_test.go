package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignaturesReturnsCopies(t *testing.T) {
	sigs, ok := Signatures(".png")
	require.True(t, ok)
	require.Len(t, sigs, 1)

	sigs[0][0] = 0x00

	again, _ := Signatures(".PNG")
	assert.Equal(t, byte(0x89), again[0][0], "registry must not be mutable through returned slices")
}

func TestMatchesAnyAcceptsAlternativeSignatures(t *testing.T) {
	assert.True(t, MatchesAny([]byte("GIF87a......"), ".gif"))
	assert.True(t, MatchesAny([]byte("GIF89a......"), ".gif"))
	assert.False(t, MatchesAny([]byte("GIF90a......"), ".gif"))
	assert.True(t, MatchesAny([]byte{0x49, 0x44, 0x33, 0x04}, ".mp3"))
}

func TestMatchesRequiresFullSignature(t *testing.T) {
	assert.False(t, Matches([]byte{0x89, 0x50}, []byte{0x89, 0x50, 0x4E, 0x47}))
	assert.False(t, Matches([]byte{0x89}, nil))
}

func TestExempt(t *testing.T) {
	for _, ext := range []string{".ipa", ".aab", ".pkg", ".dmg", ".enc", ".txt", ".LOG"} {
		assert.True(t, Exempt(ext), ext)
	}
	assert.False(t, Exempt(".apk"))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/jpeg", ContentType("Photo.JPG"))
	assert.Equal(t, "application/vnd.android.package-archive", ContentType("app.apk"))
	assert.Equal(t, "application/octet-stream", ContentType("README"))
}
