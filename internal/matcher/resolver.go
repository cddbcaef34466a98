package matcher

import (
	"sort"

	"allocation-engine/internal/domain"
	"allocation-engine/internal/normalizer"
)

// ResolveTransaction probes both provenance indexes for a transaction
// lacking a policy number. The probe is read-only: nothing is written back
// until an operator applies the resolution through the audited path.
//
// A reference mapping to more than one policy, or to different policies in
// the two provenances, is reported as ambiguous with all candidates
// listed. Resolving such a case requires a human decision.
func ResolveTransaction(tx domain.TransactionRecord, file, db *PolicyIndex) domain.TransactionResolution {
	normalized := normalizer.NormalizeReference(tx.ExternalReference)

	resolution := domain.TransactionResolution{
		Transaction:         tx,
		NormalizedReference: normalized,
		MatchStatus:         domain.MatchStatusNoMatch,
	}
	if normalized == "" {
		return resolution
	}

	fileHits := file.ByExternalReference(normalized)
	dbHits := db.ByExternalReference(normalized)

	if len(fileHits) == 0 && len(dbHits) == 0 {
		return resolution
	}

	candidates := candidatePolicyNumbers(fileHits, dbHits)
	if len(candidates) > 1 {
		resolution.MatchStatus = domain.MatchStatusAmbiguous
		resolution.Candidates = candidates
		return resolution
	}

	resolution.MatchStatus = domain.MatchStatusMatched
	resolution.PolicyNumber = candidates[0]
	switch {
	case len(fileHits) > 0 && len(dbHits) > 0:
		resolution.MatchSource = domain.MatchSourceFileAndDatabase
	case len(fileHits) > 0:
		resolution.MatchSource = domain.MatchSourceFile
	default:
		resolution.MatchSource = domain.MatchSourceDatabase
	}
	return resolution
}

// ResolveTransactions resolves a batch in input order.
func ResolveTransactions(txs []domain.TransactionRecord, file, db *PolicyIndex) []domain.TransactionResolution {
	resolutions := make([]domain.TransactionResolution, 0, len(txs))
	for _, tx := range txs {
		resolutions = append(resolutions, ResolveTransaction(tx, file, db))
	}
	return resolutions
}

func candidatePolicyNumbers(fileHits, dbHits []domain.PolicyRecord) []string {
	seen := make(map[string]bool)
	candidates := make([]string, 0, len(fileHits)+len(dbHits))
	for _, rec := range fileHits {
		if !seen[rec.PolicyNumber] {
			seen[rec.PolicyNumber] = true
			candidates = append(candidates, rec.PolicyNumber)
		}
	}
	for _, rec := range dbHits {
		if !seen[rec.PolicyNumber] {
			seen[rec.PolicyNumber] = true
			candidates = append(candidates, rec.PolicyNumber)
		}
	}
	sort.Strings(candidates)
	return candidates
}
