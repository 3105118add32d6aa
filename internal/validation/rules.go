package validation

import (
	"strings"

	"github.com/abduss/artifactdrive/internal/artifact"
)

const (
	// ReleaseMaxSize caps a single release binary.
	ReleaseMaxSize = 500 * artifact.MiB
	// AttachmentMaxSize caps a single support ticket attachment.
	AttachmentMaxSize = 5 * artifact.MiB
	// AttachmentMaxCount caps the number of attachments per ticket.
	AttachmentMaxCount = 5

	// ReleaseMaxRequestSize caps a whole release upload request: the binary
	// plus form fields and multipart framing.
	ReleaseMaxRequestSize = ReleaseMaxSize + artifact.MiB
	// AttachmentMaxRequestSize caps a whole ticket submission with all attachments.
	AttachmentMaxRequestSize = 25 * artifact.MiB

	// MaxFileNameLength matches the width of the stored file name columns.
	MaxFileNameLength = 255
)

var releaseContentTypes = []string{
	"application/vnd.android.package-archive",
	"application/x-authorware-bin",
	"application/octet-stream",
	"application/x-msdownload",
	"application/x-apple-diskimage",
	"application/x-newton-compatible-pkg",
}

var attachmentExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp",
	".pdf", ".txt", ".log",
}

var attachmentContentTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"application/pdf",
	"text/plain",
}

// Target describes what an upload is allowed to be.
type Target struct {
	name         string
	maxSize      int64
	extensions   []string
	contentTypes map[string]struct{}
}

// ReleaseTarget accepts exactly the extension bound to t.
func ReleaseTarget(t artifact.ReleaseType) Target {
	var exts []string
	if ext, ok := t.Extension(); ok {
		exts = []string{ext}
	}
	return Target{
		name:         "release:" + t.String(),
		maxSize:      ReleaseMaxSize,
		extensions:   exts,
		contentTypes: setOf(releaseContentTypes),
	}
}

// AttachmentTarget accepts common image and document types.
func AttachmentTarget() Target {
	return Target{
		name:         "attachment",
		maxSize:      AttachmentMaxSize,
		extensions:   attachmentExtensions,
		contentTypes: setOf(attachmentContentTypes),
	}
}

func (t Target) allowsExtension(ext string) bool {
	for _, allowed := range t.extensions {
		if allowed == ext {
			return true
		}
	}
	return false
}

func (t Target) allowsContentType(ct string) bool {
	_, ok := t.contentTypes[ct]
	return ok
}

func setOf(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToLower(v)] = struct{}{}
	}
	return set
}
