package repository

import (
	"database/sql"
	"strconv"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"allocation-engine/internal/domain"
	"allocation-engine/pkg/logger"
)

// uniqueViolation is the postgres error code raised by the partial unique
// index on (transaction_id) WHERE status IN non-terminal states.
const uniqueViolation = "23505"

type AllocationRepository interface {
	Create(req *domain.AllocationRequest) error
	GetByID(id uuid.UUID) (*domain.AllocationRequest, error)
	GetManyByIDs(ids []uuid.UUID) (map[uuid.UUID]domain.AllocationRequest, error)
	List(filter domain.AllocationFilter) ([]domain.AllocationRequest, int, error)
	HasActiveForTransaction(transactionID int64) (bool, error)
	// UpdateStatus performs the conditional write of a workflow transition:
	// the UPDATE is predicated on the previously read status, and zero rows
	// affected surfaces as ConcurrentModificationError.
	UpdateStatus(req *domain.AllocationRequest, expected domain.AllocationStatus) error
	AddNote(requestID uuid.UUID, author, text string) error
	AddEvidence(requestID uuid.UUID, documentRef string) error
}

type allocationRepository struct {
	db *sql.DB
}

func NewAllocationRepository(db *sql.DB) AllocationRepository {
	return &allocationRepository{db: db}
}

const allocationColumns = `id, transaction_id, policy_number, status, requested_by, rejection_reason,
	approved_at, rejected_at, submitted_at, cancelled_at, created_at, updated_at`

func (r *allocationRepository) Create(req *domain.AllocationRequest) error {
	query := `
		INSERT INTO allocation_requests (id, transaction_id, policy_number, status, requested_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		req.ID,
		req.TransactionID,
		req.PolicyNumber,
		req.Status,
		req.RequestedBy,
	).Scan(&req.CreatedAt, &req.UpdatedAt)

	if pqErr, ok := err.(*pq.Error); ok && string(pqErr.Code) == uniqueViolation {
		return domain.ErrActiveRequestExists
	}
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to create allocation request")
		return err
	}

	return nil
}

func (r *allocationRepository) GetByID(id uuid.UUID) (*domain.AllocationRequest, error) {
	query := `
		SELECT ` + allocationColumns + `
		FROM allocation_requests
		WHERE id = $1
	`

	var req domain.AllocationRequest
	err := r.db.QueryRow(query, id).Scan(
		&req.ID,
		&req.TransactionID,
		&req.PolicyNumber,
		&req.Status,
		&req.RequestedBy,
		&req.RejectionReason,
		&req.ApprovedAt,
		&req.RejectedAt,
		&req.SubmittedAt,
		&req.CancelledAt,
		&req.CreatedAt,
		&req.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		logger.GetLogger().WithError(err).WithField("request_id", id).Error("Failed to get allocation request")
		return nil, err
	}

	if err := r.loadNotes(&req); err != nil {
		return nil, err
	}
	if err := r.loadEvidence(&req); err != nil {
		return nil, err
	}

	return &req, nil
}

func (r *allocationRepository) GetManyByIDs(ids []uuid.UUID) (map[uuid.UUID]domain.AllocationRequest, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]domain.AllocationRequest{}, nil
	}

	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	query := `
		SELECT ` + allocationColumns + `
		FROM allocation_requests
		WHERE id = ANY($1)
	`

	rows, err := r.db.Query(query, pq.Array(idStrings))
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to query allocation requests")
		return nil, err
	}
	defer rows.Close()

	requests := make(map[uuid.UUID]domain.AllocationRequest, len(ids))
	for rows.Next() {
		req, err := scanAllocation(rows)
		if err != nil {
			logger.GetLogger().WithError(err).Error("Failed to scan allocation request")
			continue
		}
		requests[req.ID] = *req
	}

	return requests, rows.Err()
}

func (r *allocationRepository) List(filter domain.AllocationFilter) ([]domain.AllocationRequest, int, error) {
	where := " WHERE 1=1"
	args := make([]interface{}, 0, 4)

	if filter.Status != nil {
		args = append(args, *filter.Status)
		where += " AND status = $" + strconv.Itoa(len(args))
	}
	if filter.RequestedBy != "" {
		args = append(args, filter.RequestedBy)
		where += " AND requested_by = $" + strconv.Itoa(len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where += " AND created_at >= $" + strconv.Itoa(len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where += " AND created_at <= $" + strconv.Itoa(len(args))
	}

	var total int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM allocation_requests`+where, args...).Scan(&total); err != nil {
		logger.GetLogger().WithError(err).Error("Failed to count allocation requests")
		return nil, 0, err
	}

	args = append(args, filter.PageSize)
	limitPos := strconv.Itoa(len(args))
	args = append(args, (filter.Page-1)*filter.PageSize)
	offsetPos := strconv.Itoa(len(args))

	query := `
		SELECT ` + allocationColumns + `
		FROM allocation_requests` + where + `
		ORDER BY created_at DESC, id
		LIMIT $` + limitPos + ` OFFSET $` + offsetPos

	rows, err := r.db.Query(query, args...)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to query allocation requests")
		return nil, 0, err
	}
	defer rows.Close()

	requests := make([]domain.AllocationRequest, 0, filter.PageSize)
	for rows.Next() {
		req, err := scanAllocation(rows)
		if err != nil {
			logger.GetLogger().WithError(err).Error("Failed to scan allocation request")
			continue
		}
		requests = append(requests, *req)
	}

	return requests, total, rows.Err()
}

func (r *allocationRepository) HasActiveForTransaction(transactionID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM allocation_requests
			WHERE transaction_id = $1 AND status IN ($2, $3, $4)
		)
	`

	var exists bool
	err := r.db.QueryRow(query, transactionID,
		domain.StatusPending, domain.StatusApproved, domain.StatusSubmitted,
	).Scan(&exists)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to check active allocation requests")
		return false, err
	}

	return exists, nil
}

func (r *allocationRepository) UpdateStatus(req *domain.AllocationRequest, expected domain.AllocationStatus) error {
	query := `
		UPDATE allocation_requests
		SET status = $1, rejection_reason = $2,
			approved_at = $3, rejected_at = $4, submitted_at = $5, cancelled_at = $6,
			updated_at = $7
		WHERE id = $8 AND status = $9
	`

	res, err := r.db.Exec(
		query,
		req.Status,
		req.RejectionReason,
		req.ApprovedAt,
		req.RejectedAt,
		req.SubmittedAt,
		req.CancelledAt,
		req.UpdatedAt,
		req.ID,
		expected,
	)
	if err != nil {
		logger.GetLogger().WithError(err).WithField("request_id", req.ID).Error("Failed to update allocation request")
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists bool
		if err := r.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM allocation_requests WHERE id = $1)`, req.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
		// Row exists but the status moved out from under us.
		return &domain.ConcurrentModificationError{RequestID: req.ID.String(), Expected: expected}
	}

	return nil
}

func (r *allocationRepository) AddNote(requestID uuid.UUID, author, text string) error {
	_, err := r.db.Exec(`
		INSERT INTO allocation_notes (request_id, author, note)
		VALUES ($1, $2, $3)
	`, requestID, author, text)
	if err != nil {
		logger.GetLogger().WithError(err).WithField("request_id", requestID).Error("Failed to add note")
	}
	return err
}

func (r *allocationRepository) AddEvidence(requestID uuid.UUID, documentRef string) error {
	_, err := r.db.Exec(`
		INSERT INTO allocation_evidence (request_id, document_ref)
		VALUES ($1, $2)
		ON CONFLICT (request_id, document_ref) DO NOTHING
	`, requestID, documentRef)
	if err != nil {
		logger.GetLogger().WithError(err).WithField("request_id", requestID).Error("Failed to add evidence")
	}
	return err
}

func (r *allocationRepository) loadNotes(req *domain.AllocationRequest) error {
	rows, err := r.db.Query(`
		SELECT id, author, note, created_at
		FROM allocation_notes
		WHERE request_id = $1
		ORDER BY created_at, id
	`, req.ID)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to query notes")
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var note domain.Note
		if err := rows.Scan(&note.ID, &note.Author, &note.Text, &note.CreatedAt); err != nil {
			logger.GetLogger().WithError(err).Error("Failed to scan note")
			continue
		}
		req.Notes = append(req.Notes, note)
	}
	return rows.Err()
}

func (r *allocationRepository) loadEvidence(req *domain.AllocationRequest) error {
	rows, err := r.db.Query(`
		SELECT document_ref
		FROM allocation_evidence
		WHERE request_id = $1
		ORDER BY id
	`, req.ID)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to query evidence")
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			continue
		}
		req.Evidence = append(req.Evidence, ref)
	}
	return rows.Err()
}

func scanAllocation(rows *sql.Rows) (*domain.AllocationRequest, error) {
	var req domain.AllocationRequest
	err := rows.Scan(
		&req.ID,
		&req.TransactionID,
		&req.PolicyNumber,
		&req.Status,
		&req.RequestedBy,
		&req.RejectionReason,
		&req.ApprovedAt,
		&req.RejectedAt,
		&req.SubmittedAt,
		&req.CancelledAt,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}
