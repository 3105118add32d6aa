package artifact

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	// CategoryReleases prefixes release binary keys.
	CategoryReleases = "releases"
	// CategoryAttachments prefixes support ticket attachment keys.
	CategoryAttachments = "support-attachments"
)

// ReleaseKey builds releases/{type}/{version}/{id}{ext}.
func ReleaseKey(t ReleaseType, version string, id uuid.UUID, ext string) string {
	return fmt.Sprintf("%s/%s/%s/%s%s", CategoryReleases, t, version, id, ext)
}

// AttachmentKey builds support-attachments/{id}{ext}.
func AttachmentKey(id uuid.UUID, ext string) string {
	return fmt.Sprintf("%s/%s%s", CategoryAttachments, id, ext)
}
