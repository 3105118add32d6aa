package artifact

import (
	"fmt"
	"strings"
)

// ReleaseType identifies the distribution channel a release binary targets.
type ReleaseType string

const (
	WindowsInstaller ReleaseType = "WindowsInstaller"
	WindowsStore     ReleaseType = "WindowsStore"
	AndroidApk       ReleaseType = "AndroidApk"
	AndroidPlayStore ReleaseType = "AndroidPlayStore"
	MacOS            ReleaseType = "MacOS"
	MacOSDmg         ReleaseType = "MacOSDmg"
	IOS              ReleaseType = "iOS"
	Linux            ReleaseType = "Linux"
)

var releaseTypes = []ReleaseType{
	WindowsInstaller, WindowsStore, AndroidApk, AndroidPlayStore, MacOS, MacOSDmg, IOS, Linux,
}

// Linux has no accepted package format yet, so every Linux upload is rejected.
var releaseExtensions = map[ReleaseType]string{
	WindowsInstaller: ".exe",
	WindowsStore:     ".msix",
	AndroidApk:       ".apk",
	AndroidPlayStore: ".aab",
	IOS:              ".ipa",
	MacOS:            ".pkg",
	MacOSDmg:         ".dmg",
}

// ParseReleaseType resolves a release type name case-insensitively.
func ParseReleaseType(s string) (ReleaseType, error) {
	s = strings.TrimSpace(s)
	for _, t := range releaseTypes {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown release type %q", s)
}

// Extension returns the single file extension accepted for t.
func (t ReleaseType) Extension() (string, bool) {
	ext, ok := releaseExtensions[t]
	return ext, ok
}

// Valid reports whether t is a known release type.
func (t ReleaseType) Valid() bool {
	for _, known := range releaseTypes {
		if known == t {
			return true
		}
	}
	return false
}

func (t ReleaseType) String() string {
	return string(t)
}
