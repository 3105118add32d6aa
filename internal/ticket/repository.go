package ticket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abduss/artifactdrive/internal/apperr"
)

const repoTimeout = 5 * time.Second

const attachmentColumns = `id, ticket_id, file_id, file_name, original_file_name, content_type,
file_extension, file_size, storage_key, uploaded_at`

// Repository provides access to tickets and their attachments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds a ticket repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateWithAttachments inserts the ticket and every attachment in one transaction.
func (r *Repository) CreateWithAttachments(ctx context.Context, t Ticket) (Ticket, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Ticket{}, fmt.Errorf("begin ticket tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	err = tx.QueryRow(ctx, `
INSERT INTO support_tickets (email, title, category, description, status, priority)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at;`,
		t.Email, t.Title, t.Category, t.Description, string(t.Status), string(t.Priority),
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return Ticket{}, fmt.Errorf("insert ticket: %w", err)
	}

	for i := range t.Attachments {
		a := &t.Attachments[i]
		a.TicketID = t.ID
		err := tx.QueryRow(ctx, `
INSERT INTO support_attachments (ticket_id, file_id, file_name, original_file_name, content_type,
    file_extension, file_size, storage_key, uploaded_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id;`,
			a.TicketID, a.FileID, a.FileName, a.OriginalFileName, a.ContentType,
			a.FileExtension, a.FileSize, a.StorageKey, a.UploadedAt,
		).Scan(&a.ID)
		if err != nil {
			return Ticket{}, fmt.Errorf("insert attachment %s: %w", a.StorageKey, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Ticket{}, fmt.Errorf("commit ticket tx: %w", err)
	}
	return t, nil
}

// Get fetches a ticket with its attachments.
func (r *Repository) Get(ctx context.Context, id int64) (Ticket, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	var (
		t        Ticket
		status   string
		priority string
	)
	err := r.pool.QueryRow(ctx, `
SELECT id, email, title, category, description, status, priority, created_at
FROM support_tickets WHERE id = $1;`, id).Scan(
		&t.ID, &t.Email, &t.Title, &t.Category, &t.Description, &status, &priority, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ticket{}, apperr.NotFound("Support ticket not found")
		}
		return Ticket{}, fmt.Errorf("get ticket: %w", err)
	}
	t.Status = Status(status)
	t.Priority = Priority(priority)

	rows, err := r.pool.Query(ctx, `SELECT `+attachmentColumns+` FROM support_attachments WHERE ticket_id = $1 ORDER BY id;`, id)
	if err != nil {
		return Ticket{}, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	t.Attachments = []Attachment{}
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return Ticket{}, fmt.Errorf("scan attachment: %w", err)
		}
		t.Attachments = append(t.Attachments, a)
	}
	if err := rows.Err(); err != nil {
		return Ticket{}, fmt.Errorf("iterate attachments: %w", err)
	}
	return t, nil
}

// GetAttachment fetches a single attachment.
func (r *Repository) GetAttachment(ctx context.Context, id int64) (Attachment, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	a, err := scanAttachment(r.pool.QueryRow(ctx, `SELECT `+attachmentColumns+` FROM support_attachments WHERE id = $1;`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Attachment{}, apperr.NotFound("Attachment not found")
		}
		return Attachment{}, fmt.Errorf("get attachment: %w", err)
	}
	return a, nil
}

// Delete removes a ticket and, through the cascade, its attachment rows.
// It returns the storage keys the attachments pointed at.
func (r *Repository) Delete(ctx context.Context, id int64) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin delete tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	rows, err := tx.Query(ctx, `SELECT storage_key FROM support_attachments WHERE ticket_id = $1 FOR UPDATE;`, id)
	if err != nil {
		return nil, fmt.Errorf("lock attachments: %w", err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect attachment keys: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM support_tickets WHERE id = $1;`, id)
	if err != nil {
		return nil, fmt.Errorf("delete ticket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, apperr.NotFound("Support ticket not found")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit delete tx: %w", err)
	}
	return keys, nil
}

func scanAttachment(row pgx.Row) (Attachment, error) {
	var a Attachment
	err := row.Scan(
		&a.ID,
		&a.TicketID,
		&a.FileID,
		&a.FileName,
		&a.OriginalFileName,
		&a.ContentType,
		&a.FileExtension,
		&a.FileSize,
		&a.StorageKey,
		&a.UploadedAt,
	)
	return a, err
}
