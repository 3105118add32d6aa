package release

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abduss/artifactdrive/internal/apperr"
	"github.com/abduss/artifactdrive/internal/artifact"
)

const repoTimeout = 5 * time.Second

const releaseColumns = `id, file_name, version, release_type, file_id, storage_key, file_size_bytes,
content_type, release_notes, file_extension, uploaded_at, is_active, download_count`

// Repository provides access to release metadata.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a release repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a release and returns the stored row.
func (r *Repository) Create(ctx context.Context, rel Release) (Release, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
INSERT INTO app_releases (file_name, version, release_type, file_id, storage_key, file_size_bytes,
    content_type, release_notes, file_extension, uploaded_at, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE)
RETURNING ` + releaseColumns + `;`

	stored, err := scanRelease(r.pool.QueryRow(ctx, query,
		rel.FileName,
		rel.Version,
		string(rel.Type),
		rel.FileID,
		rel.StorageKey,
		rel.FileSizeBytes,
		rel.ContentType,
		rel.ReleaseNotes,
		rel.FileExtension,
		rel.UploadedAt,
	))
	if err != nil {
		return Release{}, fmt.Errorf("create release: %w", err)
	}
	return stored, nil
}

// Get fetches a release by id, active or not.
func (r *Repository) Get(ctx context.Context, id int64) (Release, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `SELECT ` + releaseColumns + ` FROM app_releases WHERE id = $1;`

	rel, err := scanRelease(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Release{}, apperr.NotFound("Release not found")
		}
		return Release{}, fmt.Errorf("get release: %w", err)
	}
	return rel, nil
}

// ExistsByVersion reports whether any release, active or inactive, uses version for t.
func (r *Repository) ExistsByVersion(ctx context.Context, version string, t artifact.ReleaseType) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `SELECT EXISTS (SELECT 1 FROM app_releases WHERE version = $1 AND release_type = $2);`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, version, string(t)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check release exists: %w", err)
	}
	return exists, nil
}

// IncrementDownloadCount bumps the download counter atomically.
func (r *Repository) IncrementDownloadCount(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `UPDATE app_releases SET download_count = download_count + 1 WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("increment download count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Release not found")
	}
	return nil
}

// ListLatest returns the newest active release of every type.
func (r *Repository) ListLatest(ctx context.Context) ([]Release, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT DISTINCT ON (release_type) ` + releaseColumns + `
FROM app_releases
WHERE is_active
ORDER BY release_type, uploaded_at DESC, id DESC;`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list latest releases: %w", err)
	}
	defer rows.Close()

	var releases []Release
	for rows.Next() {
		rel, err := scanRelease(rows)
		if err != nil {
			return nil, fmt.Errorf("scan release: %w", err)
		}
		releases = append(releases, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate releases: %w", err)
	}
	return releases, nil
}

// SetActive flips the active flag and returns the updated row.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) (Release, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `UPDATE app_releases SET is_active = $2 WHERE id = $1 RETURNING ` + releaseColumns + `;`

	rel, err := scanRelease(r.pool.QueryRow(ctx, query, id, active))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Release{}, apperr.NotFound("Release not found")
		}
		return Release{}, fmt.Errorf("set release active: %w", err)
	}
	return rel, nil
}

func scanRelease(row pgx.Row) (Release, error) {
	var (
		rel         Release
		releaseType string
	)
	err := row.Scan(
		&rel.ID,
		&rel.FileName,
		&rel.Version,
		&releaseType,
		&rel.FileID,
		&rel.StorageKey,
		&rel.FileSizeBytes,
		&rel.ContentType,
		&rel.ReleaseNotes,
		&rel.FileExtension,
		&rel.UploadedAt,
		&rel.IsActive,
		&rel.DownloadCount,
	)
	if err != nil {
		return Release{}, err
	}
	rel.Type = artifact.ReleaseType(releaseType)
	return rel, nil
}
