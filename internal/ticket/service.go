package ticket

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abduss/artifactdrive/internal/apperr"
	"github.com/abduss/artifactdrive/internal/artifact"
	"github.com/abduss/artifactdrive/internal/logger"
	"github.com/abduss/artifactdrive/internal/objectstore"
	"github.com/abduss/artifactdrive/internal/signature"
	"github.com/abduss/artifactdrive/internal/upload"
	"github.com/abduss/artifactdrive/internal/validation"
)

const (
	notifyTimeout  = 30 * time.Second
	cleanupTimeout = 30 * time.Second

	createFailedMessage = "Failed to create support ticket. Please try again."
)

type metadataStore interface {
	CreateWithAttachments(ctx context.Context, t Ticket) (Ticket, error)
	Get(ctx context.Context, id int64) (Ticket, error)
	GetAttachment(ctx context.Context, id int64) (Attachment, error)
	Delete(ctx context.Context, id int64) ([]string, error)
}

type uploader interface {
	UploadBatch(ctx context.Context, plan upload.Plan, files []artifact.FileDescriptor, maxFiles int, commit upload.BatchCommitFunc) ([]upload.Staged, error)
}

type blobStore interface {
	Get(ctx context.Context, key string) (objectstore.Object, error)
	Delete(ctx context.Context, key string) error
}

// Dispatcher delivers ticket notifications. Failures never affect the stored ticket.
type Dispatcher interface {
	SendConfirmation(ctx context.Context, t Ticket) error
	SendInternalAlert(ctx context.Context, t Ticket) error
}

// Download is an opened attachment. Body must be closed by the caller.
type Download struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
	FileName    string
}

// Service manages support tickets.
type Service struct {
	repo     metadataStore
	uploads  uploader
	blobs    blobStore
	notifier Dispatcher
	validate *validator.Validate
	logger   *zap.Logger
	pending  sync.WaitGroup
}

// NewService constructs a ticket service. notifier may be nil.
func NewService(repo metadataStore, uploads uploader, blobs blobStore, notifier Dispatcher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:     repo,
		uploads:  uploads,
		blobs:    blobs,
		notifier: notifier,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   log.With(zap.String("component", "ticket")),
	}
}

var attachmentPlan = upload.Plan{
	Category:       artifact.CategoryAttachments,
	Target:         validation.AttachmentTarget(),
	Key:            artifact.AttachmentKey,
	FailureMessage: createFailedMessage,
}

// Create stores a ticket together with its attachments. Either the ticket and every
// attachment are stored, or nothing is.
func (s *Service) Create(ctx context.Context, req CreateRequest) (CreateResult, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Title = strings.TrimSpace(req.Title)
	req.Category = strings.TrimSpace(req.Category)
	req.Description = strings.TrimSpace(req.Description)

	if err := s.validate.Struct(req); err != nil {
		return CreateResult{}, validationError(err)
	}

	var created Ticket
	_, err := s.uploads.UploadBatch(ctx, attachmentPlan, req.Attachments, validation.AttachmentMaxCount,
		func(ctx context.Context, staged []upload.Staged) error {
			t := Ticket{
				Email:       req.Email,
				Title:       req.Title,
				Category:    req.Category,
				Description: req.Description,
				Status:      StatusNew,
				Priority:    PriorityNormal,
				Attachments: make([]Attachment, 0, len(staged)),
			}
			for _, st := range staged {
				t.Attachments = append(t.Attachments, attachmentFrom(st))
			}
			stored, err := s.repo.CreateWithAttachments(ctx, t)
			if err != nil {
				return err
			}
			created = stored
			return nil
		})
	if err != nil {
		return CreateResult{}, err
	}

	s.log(ctx).Info("support ticket created",
		zap.Int64("ticket_id", created.ID),
		zap.String("category", created.Category),
		zap.Int("attachments", len(created.Attachments)),
	)
	s.notify(ctx, created)

	return CreateResult{TicketID: created.ID, Attachments: len(created.Attachments)}, nil
}

// Get returns a ticket with its attachments.
func (s *Service) Get(ctx context.Context, id int64) (Ticket, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return Ticket{}, s.classify(ctx, err, "load ticket", id)
	}
	return t, nil
}

// DownloadAttachment opens attachment id under its original filename.
func (s *Service) DownloadAttachment(ctx context.Context, id int64) (Download, error) {
	a, err := s.repo.GetAttachment(ctx, id)
	if err != nil {
		return Download{}, s.classify(ctx, err, "load attachment", id)
	}

	obj, err := s.blobs.Get(ctx, a.StorageKey)
	if err != nil {
		s.log(ctx).Error("open attachment blob", zap.Int64("attachment_id", id), zap.String("key", a.StorageKey), zap.Error(err))
		return Download{}, err
	}

	contentType := a.ContentType
	if contentType == "" {
		contentType = obj.ContentType
	}
	if contentType == "" {
		contentType = signature.ContentType(a.OriginalFileName)
	}
	return Download{
		Body:        obj.Body,
		Size:        obj.Size,
		ContentType: contentType,
		FileName:    a.OriginalFileName,
	}, nil
}

// Delete removes a ticket, then its attachment blobs. Rows go first so no row is
// left pointing at a deleted blob; blobs that fail to delete are logged as orphans.
func (s *Service) Delete(ctx context.Context, id int64) error {
	keys, err := s.repo.Delete(ctx, id)
	if err != nil {
		return s.classify(ctx, err, "delete ticket", id)
	}

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	for _, key := range keys {
		if err := s.blobs.Delete(cleanupCtx, key); err != nil {
			s.log(ctx).Error("failed to delete attachment blob, manual cleanup required",
				zap.Int64("ticket_id", id), zap.String("key", key), zap.Error(err))
		}
	}

	s.log(ctx).Info("support ticket deleted", zap.Int64("ticket_id", id), zap.Int("attachments", len(keys)))
	return nil
}

// Wait blocks until pending notifications finish.
func (s *Service) Wait() {
	s.pending.Wait()
}

// notify sends the confirmation and the internal alert in the background.
func (s *Service) notify(ctx context.Context, t Ticket) {
	if s.notifier == nil {
		return
	}

	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				s.log(ctx).Error("notification panicked", zap.Int64("ticket_id", t.ID), zap.Any("panic", r))
			}
		}()

		if err := s.notifier.SendConfirmation(bg, t); err != nil {
			s.log(ctx).Error("failed to send confirmation email", zap.Int64("ticket_id", t.ID), zap.Error(err))
		}
		if err := s.notifier.SendInternalAlert(bg, t); err != nil {
			s.log(ctx).Error("failed to send support notification", zap.Int64("ticket_id", t.ID), zap.Error(err))
		}
	}()
}

func (s *Service) log(ctx context.Context) *zap.Logger {
	return logger.FromContext(ctx, s.logger)
}

func (s *Service) classify(ctx context.Context, err error, op string, id int64) error {
	if apperr.Is(err, apperr.KindNotFound) {
		s.log(ctx).Warn(op+": not found", zap.Int64("id", id))
		return err
	}
	s.log(ctx).Error(op, zap.Int64("id", id), zap.Error(err))
	return apperr.Internal(err, "Failed to load support ticket")
}

func attachmentFrom(st upload.Staged) Attachment {
	return Attachment{
		FileID:           st.FileID,
		FileName:         storedName(st.FileID, st.Extension),
		OriginalFileName: st.OriginalName,
		ContentType:      st.ContentType,
		FileExtension:    st.Extension,
		FileSize:         st.Size,
		StorageKey:       st.Key,
		UploadedAt:       st.UploadedAt,
	}
}

func storedName(id uuid.UUID, ext string) string {
	return id.String() + ext
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperr.Validation("Invalid support ticket")
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return apperr.Validation("%s is required", fe.Field())
	case "email":
		return apperr.Validation("Invalid email address")
	case "min":
		return apperr.Validation("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return apperr.Validation("%s cannot be more than %s characters", fe.Field(), fe.Param())
	default:
		return apperr.Validation("%s is invalid", fe.Field())
	}
}
