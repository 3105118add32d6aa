package artifact

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"strings"
)

// ErrNoContent is returned by Open when a descriptor has nothing to read.
var ErrNoContent = errors.New("file has no readable content")

// FileDescriptor describes one inbound file as declared by the caller.
// Open returns a fresh reader positioned at the first byte on every call;
// each reader must be closed by whoever opened it.
type FileDescriptor struct {
	Filename    string
	ContentType string
	Size        int64
	opener      func() (io.ReadCloser, error)
}

// NewFileDescriptor builds a descriptor around an opener.
func NewFileDescriptor(filename, contentType string, size int64, open func() (io.ReadCloser, error)) FileDescriptor {
	return FileDescriptor{Filename: filename, ContentType: contentType, Size: size, opener: open}
}

// FromMultipart adapts an uploaded multipart part.
func FromMultipart(fh *multipart.FileHeader) FileDescriptor {
	if fh == nil {
		return FileDescriptor{}
	}
	return FileDescriptor{
		Filename:    fh.Filename,
		ContentType: strings.TrimSpace(fh.Header.Get("Content-Type")),
		Size:        fh.Size,
		opener: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// FromBytes builds an in-memory descriptor.
func FromBytes(filename, contentType string, data []byte) FileDescriptor {
	return FileDescriptor{
		Filename:    filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		opener: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// Open returns a new reader over the file content.
func (f FileDescriptor) Open() (io.ReadCloser, error) {
	if f.opener == nil {
		return nil, ErrNoContent
	}
	return f.opener()
}

// Extension returns the lower-cased extension of the declared filename,
// including the leading dot, or "" when there is none.
func Extension(filename string) string {
	base := filename
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	i := strings.LastIndex(base, ".")
	if i < 0 || i == len(base)-1 {
		return ""
	}
	return strings.ToLower(base[i:])
}
