package service

import (
	"io"
	"time"

	"github.com/google/uuid"

	"allocation-engine/internal/domain"
	"allocation-engine/internal/matcher"
	"allocation-engine/internal/parser"
	"allocation-engine/internal/repository"
	"allocation-engine/pkg/logger"
)

// UnmatchedReport is one page of resolution probes over transactions that
// lack a policy number.
type UnmatchedReport struct {
	Matches    []domain.TransactionResolution `json:"matches"`
	NoMatches  []domain.TransactionResolution `json:"no_matches"`
	Ambiguous  []domain.TransactionResolution `json:"ambiguous"`
	Pagination domain.Pagination              `json:"pagination"`
}

// UploadSummary reports the outcome of a reference-file upload.
type UploadSummary struct {
	RecordsLoaded int                       `json:"records_loaded"`
	RowErrors     []*domain.ValidationError `json:"row_errors,omitempty"`
}

type ReconciliationService interface {
	Comparison() (*domain.ComparisonResult, error)
	UploadReferenceFile(filename string, r io.Reader) (*UploadSummary, error)
	UnmatchedTransactions(page, pageSize int) (*UnmatchedReport, error)
	ApplyResolution(identity domain.Identity, transactionID int64, policyNumber string) (*domain.ResolutionAudit, error)
}

type reconciliationService struct {
	txRepo     repository.TransactionRepository
	policyRepo repository.PolicyRepository
}

func NewReconciliationService(
	txRepo repository.TransactionRepository,
	policyRepo repository.PolicyRepository,
) ReconciliationService {
	return &reconciliationService{
		txRepo:     txRepo,
		policyRepo: policyRepo,
	}
}

// buildIndexes snapshots both provenances at call time. There is no cache:
// every comparison and probe works on freshly fetched data.
func (s *reconciliationService) buildIndexes() (file, db *matcher.PolicyIndex, err error) {
	fileRecords, err := s.policyRepo.ListFileRecords()
	if err != nil {
		return nil, nil, &domain.DependencyUnavailableError{Dependency: "policy file records", Err: err}
	}
	dbRecords, err := s.policyRepo.ListDatabasePolicies()
	if err != nil {
		return nil, nil, &domain.DependencyUnavailableError{Dependency: "policy database", Err: err}
	}

	file = matcher.NewPolicyIndex(domain.ProvenanceFile, fileRecords)
	db = matcher.NewPolicyIndex(domain.ProvenanceDatabase, dbRecords)
	return file, db, nil
}

func (s *reconciliationService) Comparison() (*domain.ComparisonResult, error) {
	file, db, err := s.buildIndexes()
	if err != nil {
		return nil, err
	}
	result := matcher.Compare(file, db)
	return &result, nil
}

func (s *reconciliationService) UploadReferenceFile(filename string, r io.Reader) (*UploadSummary, error) {
	parsed, err := parser.ParseReferenceFile(filename, r)
	if err != nil {
		// File-level failure: nothing was loaded.
		return nil, &domain.ValidationError{Field: "file", Message: err.Error()}
	}

	if err := s.policyRepo.ReplaceFileRecords(parsed.Records); err != nil {
		return nil, &domain.DependencyUnavailableError{Dependency: "policy file records", Err: err}
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"file":    filename,
		"records": len(parsed.Records),
		"errors":  len(parsed.RowErrors),
	}).Info("Reference file replaced")

	return &UploadSummary{
		RecordsLoaded: len(parsed.Records),
		RowErrors:     parsed.RowErrors,
	}, nil
}

func (s *reconciliationService) UnmatchedTransactions(page, pageSize int) (*UnmatchedReport, error) {
	transactions, total, err := s.txRepo.ListUnmatched(page, pageSize)
	if err != nil {
		return nil, &domain.DependencyUnavailableError{Dependency: "transaction store", Err: err}
	}

	file, db, err := s.buildIndexes()
	if err != nil {
		return nil, err
	}

	report := &UnmatchedReport{
		Matches:    make([]domain.TransactionResolution, 0),
		NoMatches:  make([]domain.TransactionResolution, 0),
		Ambiguous:  make([]domain.TransactionResolution, 0),
		Pagination: domain.NewPagination(page, pageSize, total),
	}

	for _, resolution := range matcher.ResolveTransactions(transactions, file, db) {
		switch resolution.MatchStatus {
		case domain.MatchStatusMatched:
			report.Matches = append(report.Matches, resolution)
		case domain.MatchStatusAmbiguous:
			report.Ambiguous = append(report.Ambiguous, resolution)
		default:
			report.NoMatches = append(report.NoMatches, resolution)
		}
	}

	return report, nil
}

// ApplyResolution is the audited write-back of an operator decision. The
// probe result only informs the recorded source; the operator's policy
// number is what gets written.
func (s *reconciliationService) ApplyResolution(identity domain.Identity, transactionID int64, policyNumber string) (*domain.ResolutionAudit, error) {
	tx, err := s.txRepo.GetByID(transactionID)
	if err != nil {
		return nil, err
	}

	source := domain.MatchSourceManual
	if file, db, err := s.buildIndexes(); err == nil {
		resolution := matcher.ResolveTransaction(*tx, file, db)
		if resolution.MatchStatus == domain.MatchStatusMatched && resolution.PolicyNumber == policyNumber {
			source = resolution.MatchSource
		}
	}

	audit := &domain.ResolutionAudit{
		ID:            uuid.New(),
		TransactionID: transactionID,
		PolicyNumber:  policyNumber,
		Source:        source,
		AppliedBy:     identity.UserID,
		AppliedAt:     time.Now().UTC(),
	}

	if err := s.txRepo.ApplyResolution(audit); err != nil {
		return nil, err
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"transaction_id": transactionID,
		"policy_number":  policyNumber,
		"applied_by":     identity.UserID,
		"source":         source,
	}).Info("Resolution applied")

	return audit, nil
}
