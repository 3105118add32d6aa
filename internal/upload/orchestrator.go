// Package upload coordinates the two-store write behind every upload:
// validate, put the blob, commit metadata, and delete the blob again when the
// commit fails. Metadata is never written before its blob exists.
package upload

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abduss/artifactdrive/internal/apperr"
	"github.com/abduss/artifactdrive/internal/artifact"
	"github.com/abduss/artifactdrive/internal/logger"
	"github.com/abduss/artifactdrive/internal/metrics"
	"github.com/abduss/artifactdrive/internal/validation"
)

const defaultCleanupTimeout = 30 * time.Second

type validator interface {
	Validate(file artifact.FileDescriptor, target validation.Target) (string, error)
}

type blobStore interface {
	Put(ctx context.Context, r io.Reader, size int64, key, contentType string) error
	Delete(ctx context.Context, key string) error
}

// KeyFunc derives a storage key from a freshly minted id and the normalised extension.
type KeyFunc func(id uuid.UUID, ext string) string

// CommitFunc persists metadata for a staged blob.
type CommitFunc func(ctx context.Context, staged Staged) error

// BatchCommitFunc persists metadata for every staged blob of a batch in one transaction.
type BatchCommitFunc func(ctx context.Context, staged []Staged) error

// Plan describes one kind of upload.
type Plan struct {
	// Category labels logs and metrics, e.g. "releases".
	Category string
	Target   validation.Target
	Key      KeyFunc
	// FailureMessage is returned to the caller when the metadata commit fails.
	FailureMessage string
}

// Staged is a blob that has been written to the object store.
type Staged struct {
	FileID       uuid.UUID
	Key          string
	Extension    string
	OriginalName string
	ContentType  string
	Size         int64
	UploadedAt   time.Time
}

// Orchestrator runs upload sagas. It holds no per-upload state and is safe for concurrent use.
type Orchestrator struct {
	validator      validator
	store          blobStore
	logger         *zap.Logger
	newID          func() uuid.UUID
	now            func() time.Time
	cleanupTimeout time.Duration
}

// NewOrchestrator constructs an orchestrator.
func NewOrchestrator(v validator, store blobStore, log *zap.Logger) *Orchestrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		validator:      v,
		store:          store,
		logger:         log.With(zap.String("component", "upload")),
		newID:          uuid.New,
		now:            time.Now,
		cleanupTimeout: defaultCleanupTimeout,
	}
}

// UploadSingle validates file, stores it, and commits its metadata.
// If the commit fails the stored blob is deleted before returning.
func (o *Orchestrator) UploadSingle(ctx context.Context, plan Plan, file artifact.FileDescriptor, commit CommitFunc) (Staged, error) {
	staged, err := o.Stage(ctx, plan, file)
	if err != nil {
		metrics.ObserveUpload(plan.Category, outcomeOf(err))
		return Staged{}, err
	}

	if err := commit(ctx, staged); err != nil {
		o.log(ctx).Error("commit metadata failed, removing stored blob",
			zap.String("category", plan.Category),
			zap.String("key", staged.Key),
			zap.Error(err),
		)
		o.compensate(ctx, []Staged{staged})
		metrics.ObserveUpload(plan.Category, "compensated")
		return Staged{}, apperr.Internal(err, "%s", plan.FailureMessage)
	}

	metrics.ObserveUpload(plan.Category, "committed")
	return staged, nil
}

// UploadBatch stages files one at a time and commits them together.
// Any failure deletes every blob already stored for the batch.
func (o *Orchestrator) UploadBatch(ctx context.Context, plan Plan, files []artifact.FileDescriptor, maxFiles int, commit BatchCommitFunc) ([]Staged, error) {
	if maxFiles > 0 && len(files) > maxFiles {
		metrics.ObserveUpload(plan.Category, "rejected")
		return nil, apperr.Validation("Maximum %d files allowed", maxFiles)
	}

	staged := make([]Staged, 0, len(files))
	for i, file := range files {
		s, err := o.Stage(ctx, plan, file)
		if err != nil {
			if len(staged) > 0 {
				o.log(ctx).Warn("batch file failed, removing earlier blobs",
					zap.String("category", plan.Category),
					zap.Int("position", i),
					zap.Int("staged", len(staged)),
					zap.String("filename", file.Filename),
				)
				o.compensate(ctx, staged)
			}
			metrics.ObserveUpload(plan.Category, outcomeOf(err))
			return nil, err
		}
		staged = append(staged, s)
	}

	if err := commit(ctx, staged); err != nil {
		o.log(ctx).Error("commit batch metadata failed, removing stored blobs",
			zap.String("category", plan.Category),
			zap.Int("staged", len(staged)),
			zap.Error(err),
		)
		o.compensate(ctx, staged)
		metrics.ObserveUpload(plan.Category, "compensated")
		return nil, apperr.Internal(err, "%s", plan.FailureMessage)
	}

	metrics.ObserveUpload(plan.Category, "committed")
	return staged, nil
}

// Stage validates file and writes it under a fresh key. On failure nothing is stored.
func (o *Orchestrator) Stage(ctx context.Context, plan Plan, file artifact.FileDescriptor) (Staged, error) {
	ext, err := o.validator.Validate(file, plan.Target)
	if err != nil {
		return Staged{}, err
	}

	id := o.newID()
	key := plan.Key(id, ext)

	rc, err := file.Open()
	if err != nil {
		o.log(ctx).Error("open upload stream", zap.String("filename", file.Filename), zap.Error(err))
		return Staged{}, apperr.Internal(err, "Failed to read uploaded file")
	}
	defer rc.Close()

	if err := o.store.Put(ctx, rc, file.Size, key, file.ContentType); err != nil {
		o.log(ctx).Error("store blob",
			zap.String("category", plan.Category),
			zap.String("key", key),
			zap.String("filename", file.Filename),
			zap.Error(err),
		)
		if apperr.KindOf(err) == apperr.KindInternal {
			return Staged{}, err
		}
		return Staged{}, apperr.Internal(err, "Failed to upload file")
	}

	return Staged{
		FileID:       id,
		Key:          key,
		Extension:    ext,
		OriginalName: file.Filename,
		ContentType:  file.ContentType,
		Size:         file.Size,
		UploadedAt:   o.now().UTC(),
	}, nil
}

// compensate deletes staged blobs. It ignores cancellation of ctx and never fails;
// a blob it cannot delete is logged as an orphan.
func (o *Orchestrator) compensate(ctx context.Context, staged []Staged) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cleanupTimeout)
	defer cancel()

	for _, s := range staged {
		if err := o.store.Delete(cleanupCtx, s.Key); err != nil {
			o.log(ctx).Error("failed to delete orphaned blob, manual cleanup required",
				zap.String("key", s.Key),
				zap.Error(err),
			)
			metrics.ObserveCompensation(false)
			continue
		}
		o.log(ctx).Info("removed blob after failed upload", zap.String("key", s.Key))
		metrics.ObserveCompensation(true)
	}
}

func (o *Orchestrator) log(ctx context.Context) *zap.Logger {
	return logger.FromContext(ctx, o.logger)
}

func outcomeOf(err error) string {
	switch apperr.KindOf(err) {
	case apperr.KindValidation, apperr.KindConflict:
		return "rejected"
	default:
		return "failed"
	}
}
