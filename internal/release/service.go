package release

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

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
	maxVersionLength      = 20
	maxReleaseNotesLength = 5000

	latestCacheKey = "releases:latest"
	counterTimeout = 5 * time.Second
	// A second delete after this delay drops a list another instance read
	// before the change and stored after the first delete.
	latestRedeleteDelay = 2 * time.Second

	saveFailedMessage = "Failed to save release. Please try again."
)

type metadataStore interface {
	Create(ctx context.Context, rel Release) (Release, error)
	Get(ctx context.Context, id int64) (Release, error)
	ExistsByVersion(ctx context.Context, version string, t artifact.ReleaseType) (bool, error)
	IncrementDownloadCount(ctx context.Context, id int64) error
	ListLatest(ctx context.Context) ([]Release, error)
	SetActive(ctx context.Context, id int64, active bool) (Release, error)
}

type uploader interface {
	UploadSingle(ctx context.Context, plan upload.Plan, file artifact.FileDescriptor, commit upload.CommitFunc) (upload.Staged, error)
}

type blobReader interface {
	Get(ctx context.Context, key string) (objectstore.Object, error)
	PresignGet(ctx context.Context, key, filename string, ttl time.Duration) (string, error)
}

// LatestCache holds the summary served by Latest. Backed by an in-process LRU or Redis.
type LatestCache interface {
	Get(ctx context.Context, key string) ([]Summary, bool)
	Set(ctx context.Context, key string, val []Summary)
	Delete(ctx context.Context, key string)
}

// Download is an opened release binary. Body must be closed by the caller.
type Download struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
	FileName    string
}

// Link is a presigned download URL.
type Link struct {
	URL       string    `json:"url"`
	FileName  string    `json:"file_name"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service manages the release lifecycle.
type Service struct {
	repo    metadataStore
	uploads uploader
	blobs   blobReader
	cache   LatestCache
	logger  *zap.Logger
	linkTTL time.Duration

	// latestMu orders cache fills against invalidations; latestGen counts invalidations.
	latestMu      sync.Mutex
	latestGen     uint64
	redeleteDelay time.Duration

	background sync.WaitGroup
}

// NewService constructs a release service. cache may be nil.
func NewService(repo metadataStore, uploads uploader, blobs blobReader, cache LatestCache, linkTTL time.Duration, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:    repo,
		uploads: uploads,
		blobs:   blobs,
		cache:   cache,
		logger:  log.With(zap.String("component", "release")),
		linkTTL: linkTTL,

		redeleteDelay: latestRedeleteDelay,
	}
}

// Upload validates and stores a release binary, then records its metadata.
// A version already used for the type is rejected before anything is written.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (Release, error) {
	req.Version = strings.TrimSpace(req.Version)
	if err := validateRequest(req); err != nil {
		return Release{}, err
	}

	exists, err := s.repo.ExistsByVersion(ctx, req.Version, req.Type)
	if err != nil {
		s.log(ctx).Error("check release exists", zap.String("version", req.Version), zap.Stringer("type", req.Type), zap.Error(err))
		return Release{}, apperr.Internal(err, saveFailedMessage)
	}
	if exists {
		s.log(ctx).Warn("release already exists", zap.String("version", req.Version), zap.Stringer("type", req.Type))
		return Release{}, apperr.Conflict("Release %s for %s already exists", req.Version, req.Type)
	}

	plan := upload.Plan{
		Category: artifact.CategoryReleases,
		Target:   validation.ReleaseTarget(req.Type),
		Key: func(id uuid.UUID, ext string) string {
			return artifact.ReleaseKey(req.Type, req.Version, id, ext)
		},
		FailureMessage: saveFailedMessage,
	}

	var created Release
	_, err = s.uploads.UploadSingle(ctx, plan, req.File, func(ctx context.Context, staged upload.Staged) error {
		rel, err := s.repo.Create(ctx, Release{
			FileName:      staged.OriginalName,
			Version:       req.Version,
			Type:          req.Type,
			FileID:        staged.FileID,
			StorageKey:    staged.Key,
			FileSizeBytes: staged.Size,
			ContentType:   staged.ContentType,
			ReleaseNotes:  req.ReleaseNotes,
			FileExtension: staged.Extension,
			UploadedAt:    staged.UploadedAt,
		})
		if err != nil {
			return err
		}
		created = rel
		return nil
	})
	if err != nil {
		return Release{}, err
	}

	s.invalidateLatest(ctx)
	s.log(ctx).Info("release uploaded",
		zap.Int64("id", created.ID),
		zap.String("version", created.Version),
		zap.Stringer("type", created.Type),
		zap.String("key", created.StorageKey),
		zap.String("size", artifact.FormatSize(created.FileSizeBytes)),
	)
	return created, nil
}

// Latest lists the newest active release of every type.
func (s *Service) Latest(ctx context.Context) ([]Summary, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, latestCacheKey); ok {
			return cached, nil
		}
	}

	gen := s.latestGeneration()
	releases, err := s.repo.ListLatest(ctx)
	if err != nil {
		s.log(ctx).Error("list latest releases", zap.Error(err))
		return nil, apperr.Internal(err, "Failed to load releases")
	}
	if len(releases) == 0 {
		s.log(ctx).Warn("no active releases to download")
		return nil, apperr.NotFound("No active files to download")
	}

	summaries := make([]Summary, 0, len(releases))
	for _, rel := range releases {
		summaries = append(summaries, summarize(rel))
	}

	s.fillLatest(ctx, gen, summaries)
	return summaries, nil
}

// Get returns a release by id.
func (s *Service) Get(ctx context.Context, id int64) (Release, error) {
	rel, err := s.repo.Get(ctx, id)
	if err != nil {
		return Release{}, s.classify(ctx, err, "load release", id)
	}
	return rel, nil
}

// Download opens the binary of release id and counts the download.
func (s *Service) Download(ctx context.Context, id int64) (Download, error) {
	rel, err := s.repo.Get(ctx, id)
	if err != nil {
		return Download{}, s.classify(ctx, err, "load release", id)
	}

	obj, err := s.blobs.Get(ctx, rel.StorageKey)
	if err != nil {
		s.log(ctx).Error("open release blob", zap.Int64("id", id), zap.String("key", rel.StorageKey), zap.Error(err))
		return Download{}, err
	}

	s.countDownload(ctx, rel.ID)

	contentType := rel.ContentType
	if contentType == "" {
		contentType = obj.ContentType
	}
	if contentType == "" {
		contentType = signature.ContentType(rel.DownloadName())
	}
	return Download{
		Body:        obj.Body,
		Size:        obj.Size,
		ContentType: contentType,
		FileName:    rel.DownloadName(),
	}, nil
}

// DownloadLink returns a presigned URL for release id and counts the download.
func (s *Service) DownloadLink(ctx context.Context, id int64) (Link, error) {
	rel, err := s.repo.Get(ctx, id)
	if err != nil {
		return Link{}, s.classify(ctx, err, "load release", id)
	}

	url, err := s.blobs.PresignGet(ctx, rel.StorageKey, rel.DownloadName(), s.linkTTL)
	if err != nil {
		return Link{}, err
	}

	s.countDownload(ctx, rel.ID)
	return Link{
		URL:       url,
		FileName:  rel.DownloadName(),
		ExpiresAt: time.Now().UTC().Add(s.linkTTL),
	}, nil
}

// SetActive activates or deactivates release id.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) (Release, error) {
	rel, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return Release{}, s.classify(ctx, err, "set release active", id)
	}
	s.invalidateLatest(ctx)
	s.log(ctx).Info("release activation changed", zap.Int64("id", id), zap.Bool("active", active))
	return rel, nil
}

// Wait blocks until pending download counter updates and cache invalidations finish.
func (s *Service) Wait() {
	s.background.Wait()
}

// countDownload increments the counter in the background. The update outlives the
// request and its failures are only logged.
func (s *Service) countDownload(ctx context.Context, id int64) {
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), counterTimeout)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		defer cancel()
		if err := s.repo.IncrementDownloadCount(bg, id); err != nil {
			s.log(ctx).Warn("increment download count", zap.Int64("id", id), zap.Error(err))
		}
	}()
}

func (s *Service) latestGeneration() uint64 {
	s.latestMu.Lock()
	defer s.latestMu.Unlock()
	return s.latestGen
}

// fillLatest stores summaries unless the cache was invalidated after gen was read.
func (s *Service) fillLatest(ctx context.Context, gen uint64, summaries []Summary) {
	if s.cache == nil {
		return
	}
	s.latestMu.Lock()
	defer s.latestMu.Unlock()
	if s.latestGen != gen {
		s.log(ctx).Debug("latest releases changed while loading, not caching")
		return
	}
	s.cache.Set(ctx, latestCacheKey, summaries)
}

func (s *Service) invalidateLatest(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.latestMu.Lock()
	s.latestGen++
	s.cache.Delete(ctx, latestCacheKey)
	s.latestMu.Unlock()

	bg := context.WithoutCancel(ctx)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		time.Sleep(s.redeleteDelay)
		s.latestMu.Lock()
		defer s.latestMu.Unlock()
		s.cache.Delete(bg, latestCacheKey)
	}()
}

func (s *Service) log(ctx context.Context) *zap.Logger {
	return logger.FromContext(ctx, s.logger)
}

func (s *Service) classify(ctx context.Context, err error, op string, id int64) error {
	if apperr.Is(err, apperr.KindNotFound) {
		s.log(ctx).Warn("release not found", zap.Int64("id", id))
		return err
	}
	s.log(ctx).Error(op, zap.Int64("id", id), zap.Error(err))
	return apperr.Internal(err, "Failed to load release")
}

func validateRequest(req UploadRequest) error {
	n := utf8.RuneCountInString(req.Version)
	if n == 0 || n > maxVersionLength {
		return apperr.Validation("Version must be between 1-%d characters", maxVersionLength)
	}
	if strings.ContainsAny(req.Version, `/\`) || strings.Contains(req.Version, "..") {
		return apperr.Validation("Version contains invalid characters")
	}
	if !req.Type.Valid() {
		return apperr.Validation("Invalid Release Type")
	}
	if utf8.RuneCountInString(req.ReleaseNotes) > maxReleaseNotesLength {
		return apperr.Validation("Release notes cannot exceed %d characters", maxReleaseNotesLength)
	}
	return nil
}
