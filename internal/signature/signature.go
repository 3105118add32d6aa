// Package signature holds the read-only tables used to recognise file formats
// by their leading bytes. The tables are built once at package initialisation
// and never modified afterwards; accessors hand out copies.
package signature

import (
	"bytes"
	"path"
	"strings"
)

// HeaderSize is the number of leading bytes inspected when sniffing content.
const HeaderSize = 16

const defaultContentType = "application/octet-stream"

var magicBytes = map[string][][]byte{
	// images
	".jpg":  {{0xFF, 0xD8, 0xFF}},
	".jpeg": {{0xFF, 0xD8, 0xFF}},
	".png":  {{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	".gif":  {[]byte("GIF87a"), []byte("GIF89a")},
	".webp": {{0x52, 0x49, 0x46, 0x46}},

	// video
	".mp4": {
		{0x00, 0x00, 0x00, 0x18, 0x66, 0x74, 0x79, 0x70},
		{0x00, 0x00, 0x00, 0x1C, 0x66, 0x74, 0x79, 0x70},
		{0x00, 0x00, 0x00, 0x20, 0x66, 0x74, 0x79, 0x70},
	},
	".webm": {{0x1A, 0x45, 0xDF, 0xA3}},

	// audio
	".mp3": {{0xFF, 0xFB}, {0xFF, 0xFA}, {0xFF, 0xF3}, {0xFF, 0xF2}, {0x49, 0x44, 0x33}},
	".aac": {{0xFF, 0xF1}, {0xFF, 0xF9}},
	".ogg": {{0x4F, 0x67, 0x67, 0x53}},

	// documents
	".pdf": {{0x25, 0x50, 0x44, 0x46}},

	// archives and installers
	".zip":  {{0x50, 0x4B, 0x03, 0x04}, {0x50, 0x4B, 0x05, 0x06}, {0x50, 0x4B, 0x07, 0x08}},
	".apk":  {{0x50, 0x4B, 0x03, 0x04}},
	".exe":  {{0x4D, 0x5A}},
	".msix": {{0x50, 0x4B, 0x03, 0x04}},
}

// Formats without a dependable leading signature, or containers too costly to sniff.
var exempt = map[string]struct{}{
	".ipa": {},
	".aab": {},
	".pkg": {},
	".dmg": {},
	".enc": {},
	".txt": {},
	".log": {},
}

var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mp3":  "audio/mpeg",
	".aac":  "audio/aac",
	".ogg":  "audio/ogg",
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".log":  "text/plain",
	".zip":  "application/zip",
	".apk":  "application/vnd.android.package-archive",
	".exe":  "application/vnd.microsoft.portable-executable",
	".msix": "application/msix",
	".ipa":  "application/octet-stream",
	".aab":  "application/octet-stream",
	".pkg":  "application/octet-stream",
	".dmg":  "application/x-apple-diskimage",
}

// Signatures returns the known signatures for ext, or false when none are registered.
func Signatures(ext string) ([][]byte, bool) {
	sigs, ok := magicBytes[strings.ToLower(ext)]
	if !ok {
		return nil, false
	}
	out := make([][]byte, len(sigs))
	for i, sig := range sigs {
		out[i] = bytes.Clone(sig)
	}
	return out, true
}

// Exempt reports whether content sniffing is skipped for ext.
func Exempt(ext string) bool {
	_, ok := exempt[strings.ToLower(ext)]
	return ok
}

// Matches reports whether header starts with sig.
func Matches(header, sig []byte) bool {
	return len(sig) > 0 && bytes.HasPrefix(header, sig)
}

// MatchesAny reports whether header starts with any signature registered for ext.
func MatchesAny(header []byte, ext string) bool {
	for _, sig := range magicBytes[strings.ToLower(ext)] {
		if Matches(header, sig) {
			return true
		}
	}
	return false
}

// ContentType returns the canonical MIME type for filename's extension.
func ContentType(filename string) string {
	if ct, ok := contentTypes[strings.ToLower(path.Ext(filename))]; ok {
		return ct
	}
	return defaultContentType
}
