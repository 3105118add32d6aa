package artifact

import (
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtension(t *testing.T) {
	cases := map[string]string{
		"photo.JPG":             ".jpg",
		"archive.tar.gz":        ".gz",
		"README":                "",
		"trailing.":             "",
		`C:\Users\me\setup.exe`: ".exe",
		"dir.v2/notes":          "",
	}
	for name, want := range cases {
		assert.Equal(t, want, Extension(name), name)
	}
}

func TestFromBytesOpensIndependentReaders(t *testing.T) {
	fd := FromBytes("notes.txt", "text/plain", []byte("hello"))

	first, err := fd.Open()
	require.NoError(t, err)
	buf := make([]byte, 2)
	_, _ = first.Read(buf)
	require.NoError(t, first.Close())

	second, err := fd.Open()
	require.NoError(t, err)
	defer second.Close()
	all, err := io.ReadAll(second)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(all))
}

func TestOpenWithoutOpener(t *testing.T) {
	_, err := FileDescriptor{Filename: "x.png"}.Open()
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestParseReleaseType(t *testing.T) {
	rt, err := ParseReleaseType("androidapk")
	require.NoError(t, err)
	assert.Equal(t, AndroidApk, rt)

	ext, ok := rt.Extension()
	assert.True(t, ok)
	assert.Equal(t, ".apk", ext)

	_, ok = Linux.Extension()
	assert.False(t, ok)

	_, err = ParseReleaseType("Symbian")
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	id := uuid.MustParse("6f1c9a52-6a0b-4f5e-9d1e-2c3b4a5d6e7f")

	assert.Equal(t, "releases/AndroidApk/1.0.0/6f1c9a52-6a0b-4f5e-9d1e-2c3b4a5d6e7f.apk",
		ReleaseKey(AndroidApk, "1.0.0", id, ".apk"))
	assert.Equal(t, "support-attachments/6f1c9a52-6a0b-4f5e-9d1e-2c3b4a5d6e7f.png",
		AttachmentKey(id, ".png"))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatSize(512))
	assert.Equal(t, "1.50 KB", FormatSize(1536))
	assert.Equal(t, "5.00 MB", FormatSize(5*MiB))
	assert.Equal(t, "500.00 MB", FormatSize(500*MiB))
	assert.Equal(t, "2.00 GB", FormatSize(2*GiB))
	assert.True(t, strings.HasSuffix(FormatSize(5*MiB+1), " MB"))
}
