package release

import (
	"time"

	"github.com/google/uuid"

	"github.com/abduss/artifactdrive/internal/artifact"
)

// Release is one uploaded binary for a release type and version.
// Releases are never deleted, only deactivated.
type Release struct {
	ID            int64                `json:"id"`
	FileName      string               `json:"file_name"`
	Version       string               `json:"version"`
	Type          artifact.ReleaseType `json:"type"`
	FileID        uuid.UUID            `json:"file_id"`
	StorageKey    string               `json:"-"`
	FileSizeBytes int64                `json:"file_size_bytes"`
	ContentType   string               `json:"content_type"`
	ReleaseNotes  string               `json:"release_notes"`
	FileExtension string               `json:"file_extension"`
	UploadedAt    time.Time            `json:"uploaded_at"`
	IsActive      bool                 `json:"is_active"`
	DownloadCount int64                `json:"download_count"`
}

// DownloadName is the filename offered to clients, e.g. AndroidApk-1.0.0.apk.
func (r Release) DownloadName() string {
	return r.Type.String() + "-" + r.Version + r.FileExtension
}

// Summary is the public listing entry for the newest active release of a type.
type Summary struct {
	ID            int64                `json:"id"`
	FileName      string               `json:"file_name"`
	Type          artifact.ReleaseType `json:"type"`
	Version       string               `json:"version"`
	UploadedAt    time.Time            `json:"uploaded_at"`
	FileSizeBytes int64                `json:"file_size_bytes"`
	FileSize      string               `json:"file_size"`
}

func summarize(r Release) Summary {
	return Summary{
		ID:            r.ID,
		FileName:      r.FileName,
		Type:          r.Type,
		Version:       r.Version,
		UploadedAt:    r.UploadedAt,
		FileSizeBytes: r.FileSizeBytes,
		FileSize:      artifact.FormatSize(r.FileSizeBytes),
	}
}

// UploadRequest carries a publisher's release upload.
type UploadRequest struct {
	Version      string
	Type         artifact.ReleaseType
	ReleaseNotes string
	File         artifact.FileDescriptor
}
