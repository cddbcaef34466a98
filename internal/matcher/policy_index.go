package matcher

import (
	"allocation-engine/internal/domain"
	"allocation-engine/internal/normalizer"
)

// PolicyIndex is a per-provenance lookup over policy records. References
// are normalized at build time so probes compare canonical forms only.
// Reference collisions are preserved: byExternalReference maps to every
// policy sharing the reference, and ambiguity is the caller's to surface.
type PolicyIndex struct {
	provenance          domain.Provenance
	byPolicyNumber      map[string]domain.PolicyRecord
	byExternalReference map[string][]domain.PolicyRecord
	withoutReference    []domain.PolicyRecord
}

// NewPolicyIndex builds the two lookup maps for one provenance. Records
// with a duplicate policy number keep the first occurrence; records with
// no external reference are tracked separately since they can never
// participate in reference-based matching.
func NewPolicyIndex(provenance domain.Provenance, records []domain.PolicyRecord) *PolicyIndex {
	idx := &PolicyIndex{
		provenance:          provenance,
		byPolicyNumber:      make(map[string]domain.PolicyRecord, len(records)),
		byExternalReference: make(map[string][]domain.PolicyRecord),
		withoutReference:    make([]domain.PolicyRecord, 0),
	}

	for _, rec := range records {
		rec.Provenance = provenance
		rec.ExternalReference = normalizer.NormalizeReference(rec.ExternalReference)

		if _, exists := idx.byPolicyNumber[rec.PolicyNumber]; !exists {
			idx.byPolicyNumber[rec.PolicyNumber] = rec
		}

		if rec.ExternalReference == "" {
			idx.withoutReference = append(idx.withoutReference, rec)
			continue
		}
		idx.byExternalReference[rec.ExternalReference] = append(idx.byExternalReference[rec.ExternalReference], rec)
	}

	return idx
}

// Provenance returns the source this index was built from.
func (idx *PolicyIndex) Provenance() domain.Provenance {
	return idx.provenance
}

// ByPolicyNumber returns the record for a policy number, if present.
func (idx *PolicyIndex) ByPolicyNumber(policyNumber string) (domain.PolicyRecord, bool) {
	rec, ok := idx.byPolicyNumber[policyNumber]
	return rec, ok
}

// ByExternalReference returns every policy holding the normalized
// reference. More than one entry means the reference is ambiguous.
func (idx *PolicyIndex) ByExternalReference(normalized string) []domain.PolicyRecord {
	return idx.byExternalReference[normalized]
}

// WithoutReference returns the records that carry no external reference.
func (idx *PolicyIndex) WithoutReference() []domain.PolicyRecord {
	return idx.withoutReference
}

// PolicyNumbers returns every indexed policy number, unordered.
func (idx *PolicyIndex) PolicyNumbers() []string {
	numbers := make([]string, 0, len(idx.byPolicyNumber))
	for n := range idx.byPolicyNumber {
		numbers = append(numbers, n)
	}
	return numbers
}

// Size returns the number of distinct policy numbers indexed.
func (idx *PolicyIndex) Size() int {
	return len(idx.byPolicyNumber)
}
