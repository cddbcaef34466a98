package matcher

import (
	"strings"

	"allocation-engine/internal/domain"
	"allocation-engine/internal/normalizer"
	"allocation-engine/pkg/logger"
)

// ScanCandidate pairs an allocation request with its transaction for
// duplicate scanning.
type ScanCandidate struct {
	Request     domain.AllocationRequest
	Transaction domain.TransactionRecord
}

// compositeKey is the deduplication key: calendar date plus trimmed
// membership identifier. Dates are compared, not instants; any time-of-day
// in the source has already been discarded by canonicalization.
type compositeKey struct {
	date         normalizer.CanonicalDate
	membershipID string
}

// ScanDuplicates cross-references allocation candidates against an
// uploaded external-ledger extract. A candidate is a duplicate iff at
// least one ledger row's composite key equals its own; every matching row
// is retained so the operator can inspect the evidence.
//
// The scan is a pure function of its two inputs: rerunning it with the
// same inputs is deterministic, and an empty extract never flags anything.
func ScanDuplicates(candidates []ScanCandidate, ledgerRows []domain.LedgerRow) []domain.DuplicateScanResult {
	ledgerMap := make(map[compositeKey][]domain.LedgerRow, len(ledgerRows))
	for _, row := range ledgerRows {
		key := compositeKey{
			date:         row.EffectiveDate,
			membershipID: strings.TrimSpace(row.MembershipID),
		}
		ledgerMap[key] = append(ledgerMap[key], row)
	}

	results := make([]domain.DuplicateScanResult, 0, len(candidates))
	duplicates := 0

	for _, candidate := range candidates {
		key := compositeKey{
			date:         candidate.Transaction.CanonicalDate(),
			membershipID: strings.TrimSpace(candidate.Request.PolicyNumber),
		}
		matching := ledgerMap[key]

		result := domain.DuplicateScanResult{
			RequestID:          candidate.Request.ID.String(),
			IsDuplicate:        len(matching) > 0,
			MatchCount:         len(matching),
			MatchingLedgerRows: append([]domain.LedgerRow(nil), matching...),
		}
		if result.IsDuplicate {
			duplicates++
		}
		results = append(results, result)
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"candidates":  len(candidates),
		"ledger_rows": len(ledgerRows),
		"duplicates":  duplicates,
	}).Info("Duplicate scan completed")

	return results
}
