package service

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"allocation-engine/internal/domain"
	"allocation-engine/internal/exporter"
	"allocation-engine/internal/matcher"
	"allocation-engine/internal/parser"
	"allocation-engine/internal/repository"
	"allocation-engine/internal/workflow"
	"allocation-engine/pkg/logger"
)

type AllocationService interface {
	Create(identity domain.Identity, transactionID int64, policyNumber, note string) (*domain.AllocationRequest, error)
	Get(id string) (*domain.AllocationRequest, error)
	List(filter domain.AllocationFilter) ([]domain.AllocationRequest, domain.Pagination, error)
	Transition(identity domain.Identity, id string, target domain.AllocationStatus, reason string) (*domain.AllocationRequest, error)
	BatchTransition(identity domain.Identity, ids []string, target domain.AllocationStatus) []domain.BatchItemResult
	ScanDuplicates(ids []string, extract *parser.ExtractResult) ([]domain.DuplicateScanResult, error)
	Export(ids []string, w io.Writer) ([]domain.BatchItemResult, error)
	AddNote(identity domain.Identity, id, text string) error
	AddEvidence(identity domain.Identity, id, documentRef string) error
}

type allocationService struct {
	allocRepo repository.AllocationRepository
	txRepo    repository.TransactionRepository
	engine    *workflow.Engine
}

func NewAllocationService(
	allocRepo repository.AllocationRepository,
	txRepo repository.TransactionRepository,
) AllocationService {
	return &allocationService{
		allocRepo: allocRepo,
		txRepo:    txRepo,
		engine:    workflow.NewEngine(),
	}
}

func (s *allocationService) Create(identity domain.Identity, transactionID int64, policyNumber, note string) (*domain.AllocationRequest, error) {
	if policyNumber == "" {
		return nil, &domain.ValidationError{Field: "policy_number", Message: "policy number is required"}
	}

	if _, err := s.txRepo.GetByID(transactionID); err != nil {
		return nil, err
	}

	// Pre-check; the partial unique index backstops the race.
	active, err := s.allocRepo.HasActiveForTransaction(transactionID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, domain.ErrActiveRequestExists
	}

	req := &domain.AllocationRequest{
		ID:            uuid.New(),
		TransactionID: transactionID,
		PolicyNumber:  policyNumber,
		Status:        domain.StatusPending,
		RequestedBy:   identity.UserID,
	}
	if err := s.allocRepo.Create(req); err != nil {
		return nil, err
	}

	if note != "" {
		if err := s.allocRepo.AddNote(req.ID, identity.UserID, note); err == nil {
			req.Notes = append(req.Notes, domain.Note{Author: identity.UserID, Text: note})
		}
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"request_id":     req.ID,
		"transaction_id": transactionID,
		"policy_number":  policyNumber,
		"requested_by":   identity.UserID,
	}).Info("Allocation request created")

	return req, nil
}

func (s *allocationService) Get(id string) (*domain.AllocationRequest, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return nil, &domain.ValidationError{Field: "id", Message: "invalid request id"}
	}
	return s.allocRepo.GetByID(requestID)
}

func (s *allocationService) List(filter domain.AllocationFilter) ([]domain.AllocationRequest, domain.Pagination, error) {
	requests, total, err := s.allocRepo.List(filter)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	return requests, domain.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Transition performs one read-verify-write step: read the current record,
// let the engine validate and stamp the transition, then write conditioned
// on the status we read. A concurrent writer makes the conditional write
// fail with ConcurrentModificationError rather than being overwritten.
func (s *allocationService) Transition(identity domain.Identity, id string, target domain.AllocationStatus, reason string) (*domain.AllocationRequest, error) {
	current, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	updated, err := s.engine.Apply(identity, current, target, reason, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.allocRepo.UpdateStatus(updated, current.Status); err != nil {
		return nil, err
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"request_id": updated.ID,
		"from":       current.Status,
		"to":         target,
		"actor":      identity.UserID,
	}).Info("Allocation request transitioned")

	return updated, nil
}

// BatchTransition attempts each id independently; one failure never aborts
// the rest. The result enumerates success and failure per id.
func (s *allocationService) BatchTransition(identity domain.Identity, ids []string, target domain.AllocationStatus) []domain.BatchItemResult {
	results := make([]domain.BatchItemResult, 0, len(ids))
	for _, id := range ids {
		item := domain.BatchItemResult{ID: id, OK: true}
		if _, err := s.Transition(identity, id, target, ""); err != nil {
			item.OK = false
			item.Error = err.Error()
		}
		results = append(results, item)
	}
	return results
}

// ScanDuplicates cross-references the selected requests against the parsed
// ledger extract. Read-only: only a later allocate/mark-duplicate call
// persists anything.
func (s *allocationService) ScanDuplicates(ids []string, extract *parser.ExtractResult) ([]domain.DuplicateScanResult, error) {
	candidates, missing, err := s.loadCandidates(ids)
	if err != nil {
		return nil, err
	}

	results := matcher.ScanDuplicates(candidates, extract.Rows)
	for _, m := range missing {
		results = append(results, domain.DuplicateScanResult{RequestID: m, Error: domain.ErrNotFound.Error()})
	}
	return results, nil
}

// Export writes the ledger file for the SUBMITTED, non-duplicate requests
// among ids, preserving input order. Ineligible ids are reported per-id
// and the eligible remainder still exports.
func (s *allocationService) Export(ids []string, w io.Writer) ([]domain.BatchItemResult, error) {
	candidates, missing, err := s.loadCandidates(ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]matcher.ScanCandidate, len(candidates))
	for _, c := range candidates {
		byID[c.Request.ID.String()] = c
	}
	missingSet := make(map[string]bool, len(missing))
	for _, m := range missing {
		missingSet[m] = true
	}

	results := make([]domain.BatchItemResult, 0, len(ids))
	lines := make([]exporter.LedgerLine, 0, len(ids))

	for _, id := range ids {
		if missingSet[id] {
			results = append(results, domain.BatchItemResult{ID: id, Error: domain.ErrNotFound.Error()})
			continue
		}
		candidate, ok := byID[id]
		if !ok {
			results = append(results, domain.BatchItemResult{ID: id, Error: "invalid request id"})
			continue
		}
		if candidate.Request.Status != domain.StatusSubmitted {
			results = append(results, domain.BatchItemResult{
				ID:    id,
				Error: fmt.Sprintf("request is %s, not %s", candidate.Request.Status, domain.StatusSubmitted),
			})
			continue
		}

		lines = append(lines, exporter.LedgerLine{
			MembershipNo:  candidate.Request.PolicyNumber,
			DepositAmount: candidate.Transaction.Amount,
			DepositDate:   candidate.Transaction.CanonicalDate(),
		})
		results = append(results, domain.BatchItemResult{ID: id, OK: true})
	}

	if err := exporter.WriteLedgerFile(w, lines); err != nil {
		return nil, err
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"requested": len(ids),
		"exported":  len(lines),
	}).Info("Ledger file exported")

	return results, nil
}

func (s *allocationService) AddNote(identity domain.Identity, id, text string) error {
	req, err := s.Get(id)
	if err != nil {
		return err
	}
	if req.Status.IsTerminal() {
		return &domain.InvalidTransitionError{
			RequestID: req.ID.String(),
			From:      req.Status,
			To:        req.Status,
			Reason:    "request is terminal",
		}
	}
	return s.allocRepo.AddNote(req.ID, identity.UserID, text)
}

func (s *allocationService) AddEvidence(identity domain.Identity, id, documentRef string) error {
	req, err := s.Get(id)
	if err != nil {
		return err
	}
	if req.Status.IsTerminal() {
		return &domain.InvalidTransitionError{
			RequestID: req.ID.String(),
			From:      req.Status,
			To:        req.Status,
			Reason:    "request is terminal",
		}
	}
	return s.allocRepo.AddEvidence(req.ID, documentRef)
}

// loadCandidates fetches requests and their transactions for a set of
// string ids. Unparseable and unknown ids come back in missing, in input
// order, so batch callers can report them per-id.
func (s *allocationService) loadCandidates(ids []string) ([]matcher.ScanCandidate, []string, error) {
	requestIDs := make([]uuid.UUID, 0, len(ids))
	missing := make([]string, 0)
	for _, id := range ids {
		parsed, err := uuid.Parse(id)
		if err != nil {
			missing = append(missing, id)
			continue
		}
		requestIDs = append(requestIDs, parsed)
	}

	requests, err := s.allocRepo.GetManyByIDs(requestIDs)
	if err != nil {
		return nil, nil, &domain.DependencyUnavailableError{Dependency: "allocation store", Err: err}
	}

	txIDs := make([]int64, 0, len(requests))
	for _, req := range requests {
		txIDs = append(txIDs, req.TransactionID)
	}
	transactions, err := s.txRepo.GetManyByIDs(txIDs)
	if err != nil {
		return nil, nil, &domain.DependencyUnavailableError{Dependency: "transaction store", Err: err}
	}

	candidates := make([]matcher.ScanCandidate, 0, len(requests))
	for _, requestID := range requestIDs {
		req, ok := requests[requestID]
		if !ok {
			missing = append(missing, requestID.String())
			continue
		}
		tx, ok := transactions[req.TransactionID]
		if !ok {
			missing = append(missing, requestID.String())
			continue
		}
		candidates = append(candidates, matcher.ScanCandidate{Request: req, Transaction: tx})
	}

	return candidates, missing, nil
}
