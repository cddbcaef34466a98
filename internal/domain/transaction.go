package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"allocation-engine/internal/normalizer"
)

// TransactionRecord is an imported payment-file transaction. Records are
// immutable after import except for attaching a resolved policy number
// through the audited resolution path.
type TransactionRecord struct {
	ID                int64           `json:"id" db:"id"`
	FileID            string          `json:"file_id" db:"file_id"`
	ExternalReference string          `json:"external_reference" db:"external_reference"`
	Amount            decimal.Decimal `json:"amount" db:"amount"`
	Date              time.Time       `json:"date" db:"transaction_date"`
	PolicyNumber      *string         `json:"policy_number,omitempty" db:"policy_number"`
	Description       string          `json:"description" db:"description"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
}

// CanonicalDate is the comparison key derived from the transaction date.
func (t TransactionRecord) CanonicalDate() normalizer.CanonicalDate {
	return normalizer.FromTime(t.Date)
}

// MatchStatus classifies a resolution attempt for an unmatched transaction.
type MatchStatus string

const (
	MatchStatusMatched   MatchStatus = "matched"
	MatchStatusNoMatch   MatchStatus = "no_match"
	MatchStatusAmbiguous MatchStatus = "ambiguous"
)

// MatchSource records which provenance produced a resolution hit.
type MatchSource string

const (
	MatchSourceFile            MatchSource = "file"
	MatchSourceDatabase        MatchSource = "database"
	MatchSourceFileAndDatabase MatchSource = "file_and_database"
	// MatchSourceManual marks an operator-supplied policy number that did
	// not come from an index hit.
	MatchSourceManual MatchSource = "manual"
)

// TransactionResolution is the read-only outcome of probing the policy
// indexes for one unmatched transaction. Nothing is written until an
// operator applies the resolution.
type TransactionResolution struct {
	Transaction         TransactionRecord `json:"transaction"`
	NormalizedReference string            `json:"normalized_reference"`
	MatchStatus         MatchStatus       `json:"match_status"`
	MatchSource         MatchSource       `json:"match_source,omitempty"`
	PolicyNumber        string            `json:"policy_number,omitempty"`
	// Candidates lists every policy sharing the reference when the match
	// is ambiguous; choosing between them is a human decision.
	Candidates []string `json:"candidates,omitempty"`
}

// ResolutionAudit is the persisted record of an operator applying a
// resolution to a transaction.
type ResolutionAudit struct {
	ID            uuid.UUID   `json:"id" db:"id"`
	TransactionID int64       `json:"transaction_id" db:"transaction_id"`
	PolicyNumber  string      `json:"policy_number" db:"policy_number"`
	Source        MatchSource `json:"source" db:"source"`
	AppliedBy     string      `json:"applied_by" db:"applied_by"`
	AppliedAt     time.Time   `json:"applied_at" db:"applied_at"`
}
