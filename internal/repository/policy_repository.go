package repository

import (
	"database/sql"

	"allocation-engine/internal/domain"
	"allocation-engine/pkg/logger"
)

type PolicyRepository interface {
	ListDatabasePolicies() ([]domain.PolicyRecord, error)
	ListFileRecords() ([]domain.PolicyRecord, error)
	ReplaceFileRecords(records []domain.PolicyRecord) error
}

type policyRepository struct {
	db *sql.DB
}

func NewPolicyRepository(db *sql.DB) PolicyRepository {
	return &policyRepository{db: db}
}

// ListDatabasePolicies reads the live policy table, the database
// provenance of the policy index.
func (r *policyRepository) ListDatabasePolicies() ([]domain.PolicyRecord, error) {
	query := `
		SELECT policy_number, COALESCE(external_reference, ''), member_name, product
		FROM policies
		ORDER BY policy_number
	`
	return r.queryRecords(query, domain.ProvenanceDatabase)
}

// ListFileRecords reads the most recently uploaded reference file rows,
// the file provenance of the policy index.
func (r *policyRepository) ListFileRecords() ([]domain.PolicyRecord, error) {
	query := `
		SELECT policy_number, COALESCE(external_reference, ''), member_name, product
		FROM policy_file_records
		ORDER BY id
	`
	return r.queryRecords(query, domain.ProvenanceFile)
}

func (r *policyRepository) queryRecords(query string, provenance domain.Provenance) ([]domain.PolicyRecord, error) {
	rows, err := r.db.Query(query)
	if err != nil {
		logger.GetLogger().WithError(err).WithField("provenance", provenance).Error("Failed to query policy records")
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.PolicyRecord, 0)
	for rows.Next() {
		var rec domain.PolicyRecord
		if err := rows.Scan(&rec.PolicyNumber, &rec.ExternalReference, &rec.MemberName, &rec.Product); err != nil {
			logger.GetLogger().WithError(err).Error("Failed to scan policy record")
			continue
		}
		rec.Provenance = provenance
		records = append(records, rec)
	}

	return records, rows.Err()
}

// ReplaceFileRecords swaps the file provenance wholesale: a re-upload
// fully replaces the previous reference file.
func (r *policyRepository) ReplaceFileRecords(records []domain.PolicyRecord) error {
	tx, err := r.db.Begin()
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to begin transaction")
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM policy_file_records`); err != nil {
		logger.GetLogger().WithError(err).Error("Failed to clear policy file records")
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO policy_file_records (policy_number, external_reference, member_name, product)
		VALUES ($1, $2, $3, $4)
	`)
	if err != nil {
		logger.GetLogger().WithError(err).Error("Failed to prepare statement")
		return err
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.Exec(rec.PolicyNumber, rec.ExternalReference, rec.MemberName, rec.Product); err != nil {
			logger.GetLogger().WithError(err).WithField("policy_number", rec.PolicyNumber).Error("Failed to insert policy file record")
			continue
		}
	}

	if err := tx.Commit(); err != nil {
		logger.GetLogger().WithError(err).Error("Failed to commit transaction")
		return err
	}

	return nil
}
