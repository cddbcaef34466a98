package repository

import (
	"database/sql"

	"github.com/lib/pq"

	"allocation-engine/internal/domain"
	"allocation-engine/pkg/logger"
)

type TransactionRepository interface {
	GetByID(id int64) (*domain.TransactionRecord, error)
	GetManyByIDs(ids []int64) (map[int64]domain.TransactionRecord, error)
	List(page, pageSize int, unallocatedOnly bool) ([]domain.TransactionRecord, int, error)
	ListUnmatched(page, pageSize int) ([]domain.TransactionRecord, int, error)
	ApplyResolution(audit *domain.ResolutionAudit) error
}

type transactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

const transactionColumns = `id, file_id, external_reference, amount, transaction_date, policy_number, description, created_at`

func (r *transactionRepository) GetByID(id int64) (*domain.TransactionRecord, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = $1
	`

	var tx domain.TransactionRecord
	err := r.db.QueryRow(query, id).Scan(
		&tx.ID,
		&tx.FileID,
		&tx.ExternalReference,
		&tx.Amount,
		&tx.Date,
		&tx.PolicyNumber,
		&tx.Description,
		&tx.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		logger.GetLogger().WithError(err).WithField("transaction_id", id).Error("Failed to get transaction")
		return nil, err
	}

	return &tx, nil
}

func (r *transactionRepository) GetManyByIDs(ids []int64) (map[int64]domain.TransactionRecord, error) {
	if len(ids) == 0 {
		return map[int64]domain.TransactionRecord{}, nil
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = ANY($1)
	`

	rows, err := r.db.Query(query, pq.Array(ids))
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to query transactions")
		return nil, err
	}
	defer rows.Close()

	transactions := make(map[int64]domain.TransactionRecord, len(ids))
	for rows.Next() {
		var tx domain.TransactionRecord
		err := rows.Scan(
			&tx.ID,
			&tx.FileID,
			&tx.ExternalReference,
			&tx.Amount,
			&tx.Date,
			&tx.PolicyNumber,
			&tx.Description,
			&tx.CreatedAt,
		)
		if err != nil {
			logger.GetLogger().WithError(err).Error("Failed to scan transaction")
			continue
		}
		transactions[tx.ID] = tx
	}

	return transactions, rows.Err()
}

func (r *transactionRepository) List(page, pageSize int, unallocatedOnly bool) ([]domain.TransactionRecord, int, error) {
	where := ""
	if unallocatedOnly {
		where = "WHERE policy_number IS NULL"
	}
	return r.listWhere(where, page, pageSize)
}

// ListUnmatched returns transactions still lacking a policy number, the
// input to the resolution probe.
func (r *transactionRepository) ListUnmatched(page, pageSize int) ([]domain.TransactionRecord, int, error) {
	return r.listWhere("WHERE policy_number IS NULL", page, pageSize)
}

func (r *transactionRepository) listWhere(where string, page, pageSize int) ([]domain.TransactionRecord, int, error) {
	var total int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM transactions ` + where).Scan(&total); err != nil {
		logger.GetLogger().WithError(err).Error("Failed to count transactions")
		return nil, 0, err
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions ` + where + `
		ORDER BY transaction_date, id
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(query, pageSize, (page-1)*pageSize)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to query transactions")
		return nil, 0, err
	}
	defer rows.Close()

	transactions := make([]domain.TransactionRecord, 0, pageSize)
	for rows.Next() {
		var tx domain.TransactionRecord
		err := rows.Scan(
			&tx.ID,
			&tx.FileID,
			&tx.ExternalReference,
			&tx.Amount,
			&tx.Date,
			&tx.PolicyNumber,
			&tx.Description,
			&tx.CreatedAt,
		)
		if err != nil {
			logger.GetLogger().WithError(err).Error("Failed to scan transaction")
			continue
		}
		transactions = append(transactions, tx)
	}

	return transactions, total, rows.Err()
}

// ApplyResolution writes the resolved policy number onto the transaction
// and records the audit entry in the same database transaction. The write
// is conditioned on the policy number still being null, so a concurrent
// resolution cannot be overwritten.
func (r *transactionRepository) ApplyResolution(audit *domain.ResolutionAudit) error {
	tx, err := r.db.Begin()
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to begin transaction")
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE transactions
		SET policy_number = $1
		WHERE id = $2 AND policy_number IS NULL
	`, audit.PolicyNumber, audit.TransactionID)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to update transaction policy number")
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists bool
		if err := tx.QueryRow(`SELECT EXISTS (SELECT 1 FROM transactions WHERE id = $1)`, audit.TransactionID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrAlreadyResolved
	}

	_, err = tx.Exec(`
		INSERT INTO resolution_audits (id, transaction_id, policy_number, source, applied_by, applied_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, audit.ID, audit.TransactionID, audit.PolicyNumber, audit.Source, audit.AppliedBy, audit.AppliedAt)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to insert resolution audit")
		return err
	}

	return tx.Commit()
}
