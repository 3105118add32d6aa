package release

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abduss/artifactdrive/internal/apperr"
	"github.com/abduss/artifactdrive/internal/artifact"
	"github.com/abduss/artifactdrive/internal/storage/storagetest"
)

func sampleRelease(t artifact.ReleaseType, version string, uploadedAt time.Time) Release {
	id := uuid.New()
	ext, _ := t.Extension()
	return Release{
		FileName:      "app" + ext,
		Version:       version,
		Type:          t,
		FileID:        id,
		StorageKey:    artifact.ReleaseKey(t, version, id, ext),
		FileSizeBytes: 1024,
		ContentType:   "application/octet-stream",
		ReleaseNotes:  "notes",
		FileExtension: ext,
		UploadedAt:    uploadedAt,
	}
}

func TestRepositoryLifecycle(t *testing.T) {
	pool := storagetest.Postgres(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	created, err := repo.Create(ctx, sampleRelease(artifact.AndroidApk, "1.0.0", time.Now().UTC()))
	require.NoError(t, err)
	assert.Positive(t, created.ID)
	assert.True(t, created.IsActive)
	assert.Zero(t, created.DownloadCount)

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.StorageKey, got.StorageKey)
	assert.Equal(t, artifact.AndroidApk, got.Type)

	_, err = repo.Get(ctx, created.ID+1000)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	require.NoError(t, repo.IncrementDownloadCount(ctx, created.ID))
	require.NoError(t, repo.IncrementDownloadCount(ctx, created.ID))
	got, err = repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.DownloadCount)

	exists, err := repo.ExistsByVersion(ctx, "1.0.0", artifact.AndroidApk)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = repo.SetActive(ctx, created.ID, false)
	require.NoError(t, err)
	exists, err = repo.ExistsByVersion(ctx, "1.0.0", artifact.AndroidApk)
	require.NoError(t, err)
	assert.True(t, exists, "inactive releases still reserve their version")

	exists, err = repo.ExistsByVersion(ctx, "1.0.0", artifact.IOS)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRepositoryListLatestPicksNewestActivePerType(t *testing.T) {
	pool := storagetest.Postgres(t)
	repo := NewRepository(pool)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := repo.Create(ctx, sampleRelease(artifact.AndroidApk, "1.0.0", base))
	require.NoError(t, err)
	newest, err := repo.Create(ctx, sampleRelease(artifact.AndroidApk, "1.1.0", base.Add(time.Hour)))
	require.NoError(t, err)
	hidden, err := repo.Create(ctx, sampleRelease(artifact.AndroidApk, "1.2.0", base.Add(2*time.Hour)))
	require.NoError(t, err)
	_, err = repo.SetActive(ctx, hidden.ID, false)
	require.NoError(t, err)
	win, err := repo.Create(ctx, sampleRelease(artifact.WindowsInstaller, "0.9.0", base))
	require.NoError(t, err)

	latest, err := repo.ListLatest(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 2)

	byType := map[artifact.ReleaseType]int64{}
	for _, rel := range latest {
		byType[rel.Type] = rel.ID
	}
	assert.Equal(t, newest.ID, byType[artifact.AndroidApk])
	assert.Equal(t, win.ID, byType[artifact.WindowsInstaller])
}

func TestRepositoryRejectsDuplicateStorageKey(t *testing.T) {
	pool := storagetest.Postgres(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	rel := sampleRelease(artifact.IOS, "1.0.0", time.Now().UTC())
	_, err := repo.Create(ctx, rel)
	require.NoError(t, err)

	rel.Version = "1.0.1"
	_, err = repo.Create(ctx, rel)
	assert.Error(t, err)
}
