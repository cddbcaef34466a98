package domain

import "allocation-engine/internal/normalizer"

// Provenance identifies where a policy record was sourced from. The two
// provenances are compared against each other, never merged.
type Provenance string

const (
	ProvenanceFile     Provenance = "file"
	ProvenanceDatabase Provenance = "database"
)

// PolicyRecord is a member policy as seen by one provenance. The external
// reference is optional and may collide across policies; collisions are
// surfaced as ambiguity, not resolved.
type PolicyRecord struct {
	PolicyNumber      string     `json:"policy_number" db:"policy_number"`
	ExternalReference string     `json:"external_reference,omitempty" db:"external_reference"`
	MemberName        string     `json:"member_name" db:"member_name"`
	Product           string     `json:"product" db:"product"`
	Provenance        Provenance `json:"provenance" db:"provenance"`
}

// ReferencePair holds the two provenances' references for one policy number.
type ReferencePair struct {
	PolicyNumber      string `json:"policy_number"`
	FileReference     string `json:"file_reference"`
	DatabaseReference string `json:"database_reference"`
}

// ComparisonResult classifies every policy number across the two
// provenances. Derived on demand from current index state; never cached.
type ComparisonResult struct {
	Matches                  []ReferencePair `json:"matches"`
	Mismatches               []ReferencePair `json:"mismatches"`
	FileOnly                 []PolicyRecord  `json:"file_only"`
	DatabaseOnly             []PolicyRecord  `json:"database_only"`
	WithoutExternalReference []PolicyRecord  `json:"without_external_reference"`
}

// LedgerRow is one row of an uploaded external-ledger extract, reduced to
// the composite-key fields plus its source line for evidence display.
type LedgerRow struct {
	MembershipID  string                   `json:"membership_id"`
	EffectiveDate normalizer.CanonicalDate `json:"effective_date"`
	Line          int                      `json:"line"`
}

// DuplicateScanResult is the per-request outcome of a duplicate scan. Only
// the resulting status transition is ever persisted; the scan itself is a
// pure function of its inputs.
type DuplicateScanResult struct {
	RequestID          string      `json:"request_id"`
	IsDuplicate        bool        `json:"is_duplicate"`
	MatchCount         int         `json:"match_count"`
	MatchingLedgerRows []LedgerRow `json:"matching_ledger_rows"`
	// Error is set when the id could not be scanned at all (unknown or
	// unparseable); IsDuplicate is meaningless in that case.
	Error string `json:"error,omitempty"`
}
