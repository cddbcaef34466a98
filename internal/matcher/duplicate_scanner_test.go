package matcher

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"allocation-engine/internal/domain"
	"allocation-engine/internal/normalizer"
)

func scanCandidate(policyNumber string, date time.Time) ScanCandidate {
	return ScanCandidate{
		Request: domain.AllocationRequest{
			ID:           uuid.New(),
			PolicyNumber: policyNumber,
			Status:       domain.StatusSubmitted,
		},
		Transaction: domain.TransactionRecord{
			ID:     1,
			Amount: decimal.NewFromFloat(500.00),
			Date:   date,
		},
	}
}

func ledgerRow(membershipID, date string, line int) domain.LedgerRow {
	parsed, err := normalizer.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return domain.LedgerRow{MembershipID: membershipID, EffectiveDate: parsed, Line: line}
}

func TestScanDuplicates_CompositeKeyMatch(t *testing.T) {
	candidate := scanCandidate("P-100", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))

	results := ScanDuplicates(
		[]ScanCandidate{candidate},
		[]domain.LedgerRow{ledgerRow("P-100", "2024/01/15", 2)},
	)

	require.Len(t, results, 1)
	assert.True(t, results[0].IsDuplicate)
	assert.Equal(t, 1, results[0].MatchCount)
	assert.Equal(t, candidate.Request.ID.String(), results[0].RequestID)
}

func TestScanDuplicates_EmptyExtractNeverFlags(t *testing.T) {
	candidates := []ScanCandidate{
		scanCandidate("P-100", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)),
		scanCandidate("P-200", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)),
	}

	results := ScanDuplicates(candidates, nil)

	require.Len(t, results, 2)
	for _, result := range results {
		assert.False(t, result.IsDuplicate)
		assert.Zero(t, result.MatchCount)
	}
}

func TestScanDuplicates_AllMatchingRowsRetained(t *testing.T) {
	candidate := scanCandidate("P-100", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))

	results := ScanDuplicates(
		[]ScanCandidate{candidate},
		[]domain.LedgerRow{
			ledgerRow("P-100", "2024-01-15", 2),
			ledgerRow("P-100", "2024/01/15", 5),
			ledgerRow("P-200", "2024-01-15", 3),
		},
	)

	require.Len(t, results, 1)
	assert.True(t, results[0].IsDuplicate)
	assert.Equal(t, 2, results[0].MatchCount)
	require.Len(t, results[0].MatchingLedgerRows, 2)
}

func TestScanDuplicates_DateDiffersNoMatch(t *testing.T) {
	candidate := scanCandidate("P-100", time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC))

	results := ScanDuplicates(
		[]ScanCandidate{candidate},
		[]domain.LedgerRow{ledgerRow("P-100", "2024-01-15", 2)},
	)

	require.Len(t, results, 1)
	assert.False(t, results[0].IsDuplicate)
}

func TestScanDuplicates_TimeOfDayIgnored(t *testing.T) {
	// The transaction carries a timestamp; only its date portion takes
	// part in the composite key.
	candidate := scanCandidate("P-100", time.Date(2024, 1, 15, 23, 45, 12, 0, time.UTC))

	results := ScanDuplicates(
		[]ScanCandidate{candidate},
		[]domain.LedgerRow{ledgerRow("P-100", "2024/01/15", 2)},
	)

	require.Len(t, results, 1)
	assert.True(t, results[0].IsDuplicate)
}

func TestScanDuplicates_MembershipTrimmed(t *testing.T) {
	candidate := scanCandidate("  P-100  ", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))

	results := ScanDuplicates(
		[]ScanCandidate{candidate},
		[]domain.LedgerRow{ledgerRow(" P-100 ", "2024-01-15", 2)},
	)

	require.Len(t, results, 1)
	assert.True(t, results[0].IsDuplicate)
}

func TestScanDuplicates_Deterministic(t *testing.T) {
	candidates := []ScanCandidate{
		scanCandidate("P-100", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)),
		scanCandidate("P-200", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)),
	}
	rows := []domain.LedgerRow{
		ledgerRow("P-100", "2024-01-15", 2),
		ledgerRow("P-300", "2024-01-15", 3),
	}

	first := ScanDuplicates(candidates, rows)
	second := ScanDuplicates(candidates, rows)
	assert.Equal(t, first, second)
}
