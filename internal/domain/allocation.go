package domain

import (
	"time"

	"github.com/google/uuid"
)

// AllocationStatus is the workflow state of an AllocationRequest.
type AllocationStatus string

const (
	StatusPending   AllocationStatus = "PENDING"
	StatusApproved  AllocationStatus = "APPROVED"
	StatusRejected  AllocationStatus = "REJECTED"
	StatusSubmitted AllocationStatus = "SUBMITTED"
	StatusAllocated AllocationStatus = "ALLOCATED"
	StatusDuplicate AllocationStatus = "DUPLICATE"
	StatusCancelled AllocationStatus = "CANCELLED"
	StatusArchived  AllocationStatus = "ARCHIVED"
)

// IsTerminal reports whether no further transition is permitted.
func (s AllocationStatus) IsTerminal() bool {
	switch s {
	case StatusAllocated, StatusDuplicate, StatusRejected, StatusCancelled, StatusArchived:
		return true
	}
	return false
}

// IsKnown reports whether s is one of the workflow statuses.
func (s AllocationStatus) IsKnown() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusSubmitted,
		StatusAllocated, StatusDuplicate, StatusCancelled, StatusArchived:
		return true
	}
	return false
}

// Note is one entry in a request's ordered note trail.
type Note struct {
	ID        int64     `json:"id" db:"id"`
	Author    string    `json:"author" db:"author"`
	Text      string    `json:"text" db:"note"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// AllocationRequest is the workflow's unit of work: one claimed pairing of
// a transaction with a policy number. Mutated only through engine
// transitions; never hard-deleted.
type AllocationRequest struct {
	ID              uuid.UUID        `json:"id" db:"id"`
	TransactionID   int64            `json:"transaction_id" db:"transaction_id"`
	PolicyNumber    string           `json:"policy_number" db:"policy_number"`
	Status          AllocationStatus `json:"status" db:"status"`
	RequestedBy     string           `json:"requested_by" db:"requested_by"`
	RejectionReason *string          `json:"rejection_reason,omitempty" db:"rejection_reason"`
	Notes           []Note           `json:"notes,omitempty"`
	Evidence        []string         `json:"evidence,omitempty"`
	ApprovedAt      *time.Time       `json:"approved_at,omitempty" db:"approved_at"`
	RejectedAt      *time.Time       `json:"rejected_at,omitempty" db:"rejected_at"`
	SubmittedAt     *time.Time       `json:"submitted_at,omitempty" db:"submitted_at"`
	CancelledAt     *time.Time       `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CreatedAt       time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at" db:"updated_at"`
}

// AllocationFilter bounds a listing query.
type AllocationFilter struct {
	Status      *AllocationStatus
	RequestedBy string
	From        *time.Time
	To          *time.Time
	Page        int
	PageSize    int
}

// BatchItemResult reports one id's outcome inside a batch operation. Batch
// operations are per-item atomic: one failure never aborts the rest.
type BatchItemResult struct {
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Pagination describes one page of a bounded listing.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// NewPagination derives page counts from a total.
func NewPagination(page, pageSize, total int) Pagination {
	totalPages := 0
	if pageSize > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return Pagination{Page: page, PageSize: pageSize, TotalItems: total, TotalPages: totalPages}
}
