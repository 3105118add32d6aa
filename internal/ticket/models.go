package ticket

import (
	"time"

	"github.com/google/uuid"

	"github.com/abduss/artifactdrive/internal/artifact"
)

// Status tracks a ticket through the support workflow.
type Status string

const (
	StatusNew                Status = "New"
	StatusOpen               Status = "Open"
	StatusInProgress         Status = "InProgress"
	StatusWaitingForCustomer Status = "WaitingForCustomer"
	StatusWaitingForSupport  Status = "WaitingForSupport"
	StatusResolved           Status = "Resolved"
	StatusClosed             Status = "Closed"
	StatusCancelled          Status = "Cancelled"
)

// Priority orders tickets for the support team.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityNormal Priority = "Normal"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

// Ticket is a support request with its attachments.
type Ticket struct {
	ID          int64        `json:"id"`
	Email       string       `json:"email"`
	Title       string       `json:"title"`
	Category    string       `json:"category"`
	Description string       `json:"description"`
	Status      Status       `json:"status"`
	Priority    Priority     `json:"priority"`
	CreatedAt   time.Time    `json:"created_at"`
	Attachments []Attachment `json:"attachments"`
}

// Attachment is a file uploaded with a ticket. FileName is the stored name, {file_id}{ext}.
type Attachment struct {
	ID               int64     `json:"id"`
	TicketID         int64     `json:"ticket_id"`
	FileID           uuid.UUID `json:"file_id"`
	FileName         string    `json:"file_name"`
	OriginalFileName string    `json:"original_file_name"`
	ContentType      string    `json:"content_type"`
	FileExtension    string    `json:"file_extension"`
	FileSize         int64     `json:"file_size"`
	StorageKey       string    `json:"-"`
	UploadedAt       time.Time `json:"uploaded_at"`
}

// CreateRequest is an anonymous ticket submission.
type CreateRequest struct {
	Email       string `validate:"required,email,max=255"`
	Title       string `validate:"required,max=100"`
	Category    string `validate:"required,max=50"`
	Description string `validate:"required,min=10,max=2000"`
	Attachments []artifact.FileDescriptor
}

// CreateResult acknowledges a stored ticket.
type CreateResult struct {
	TicketID    int64 `json:"ticket_id"`
	Attachments int   `json:"attachments"`
}
