package validation

import (
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/abduss/artifactdrive/internal/apperr"
	"github.com/abduss/artifactdrive/internal/artifact"
	"github.com/abduss/artifactdrive/internal/signature"
)

// Validator checks that an inbound file is what it claims to be.
type Validator struct {
	logger *zap.Logger
}

// NewValidator constructs a validator.
func NewValidator(logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{logger: logger.With(zap.String("component", "validator"))}
}

// Validate runs the checks in order, cheapest first, and returns the
// normalised extension of an accepted file.
func (v *Validator) Validate(file artifact.FileDescriptor, target Target) (string, error) {
	if err := v.checkNotEmpty(file); err != nil {
		return "", v.reject(file, target, err)
	}
	if err := v.checkSize(file, target); err != nil {
		return "", v.reject(file, target, err)
	}
	ext, err := v.checkExtension(file, target)
	if err != nil {
		return "", v.reject(file, target, err)
	}
	if err := v.checkContentType(file, target); err != nil {
		return "", v.reject(file, target, err)
	}
	if !signature.Exempt(ext) {
		if err := v.checkSignature(file, ext); err != nil {
			return "", v.reject(file, target, err)
		}
	}
	return ext, nil
}

func (v *Validator) checkNotEmpty(file artifact.FileDescriptor) error {
	if file.Size <= 0 {
		return apperr.Validation("No file provided or file is empty")
	}
	return nil
}

func (v *Validator) checkSize(file artifact.FileDescriptor, target Target) error {
	if file.Size > target.maxSize {
		return apperr.Validation("File size (%s) exceeds maximum allowed size (%s)",
			artifact.FormatSize(file.Size), artifact.FormatSize(target.maxSize))
	}
	return nil
}

func (v *Validator) checkExtension(file artifact.FileDescriptor, target Target) (string, error) {
	if utf8.RuneCountInString(file.Filename) > MaxFileNameLength {
		return "", apperr.Validation("File name cannot be more than %d characters", MaxFileNameLength)
	}
	ext := artifact.Extension(file.Filename)
	if ext == "" {
		return "", apperr.Validation("File has no extension")
	}
	if !target.allowsExtension(ext) {
		allowed := "none"
		if len(target.extensions) > 0 {
			allowed = strings.Join(target.extensions, ", ")
		}
		return "", apperr.Validation("File extension '%s' is not allowed. Allowed: %s", ext, allowed)
	}
	return ext, nil
}

func (v *Validator) checkContentType(file artifact.FileDescriptor, target Target) error {
	ct := normaliseContentType(file.ContentType)
	if ct == "" {
		return apperr.Validation("File has no content type")
	}
	if !target.allowsContentType(ct) {
		return apperr.Validation("Content type '%s' is not allowed", ct)
	}
	return nil
}

func (v *Validator) checkSignature(file artifact.FileDescriptor, ext string) error {
	if _, ok := signature.Signatures(ext); !ok {
		return apperr.Internal(nil, "File validation not supported for '%s'. Configuration error.", ext)
	}

	header, err := readHeader(file)
	if err != nil {
		return apperr.Internal(err, "Could not read file content")
	}
	if len(header) == 0 {
		return apperr.Validation("Could not read file content")
	}
	if !signature.MatchesAny(header, ext) {
		return apperr.Validation("File content does not match expected format for '%s'. "+
			"The file may be corrupted or incorrectly named.", ext)
	}
	return nil
}

func (v *Validator) reject(file artifact.FileDescriptor, target Target, err error) error {
	fields := []zap.Field{
		zap.String("filename", file.Filename),
		zap.String("target", target.name),
		zap.Int64("size", file.Size),
		zap.String("reason", apperr.Message(err)),
	}
	if apperr.KindOf(err) == apperr.KindInternal {
		v.logger.Error("file validation failed", append(fields, zap.Error(err))...)
	} else {
		v.logger.Warn("file rejected", fields...)
	}
	return err
}

// readHeader reads at most signature.HeaderSize bytes through a reader of its own.
func readHeader(file artifact.FileDescriptor) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	buf := make([]byte, signature.HeaderSize)
	n, err := io.ReadFull(rc, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	return buf[:n], nil
}

func normaliseContentType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
