package matcher

import (
	"sort"

	"allocation-engine/internal/domain"
	"allocation-engine/pkg/logger"
)

// Compare classifies every policy number across the file and database
// provenances. Classification is exact: any reference difference, however
// small, is a Mismatch. No fuzzy or partial matching is performed, so a
// near-miss can never silently direct money to the wrong policy.
//
// The result is ordered by policy number and is a pure function of the two
// indexes; calling it twice on the same inputs yields identical results.
func Compare(file, db *PolicyIndex) domain.ComparisonResult {
	result := domain.ComparisonResult{
		Matches:                  make([]domain.ReferencePair, 0),
		Mismatches:               make([]domain.ReferencePair, 0),
		FileOnly:                 make([]domain.PolicyRecord, 0),
		DatabaseOnly:             make([]domain.PolicyRecord, 0),
		WithoutExternalReference: make([]domain.PolicyRecord, 0),
	}

	fileNumbers := file.PolicyNumbers()
	sort.Strings(fileNumbers)

	for _, policyNumber := range fileNumbers {
		fileRec, _ := file.ByPolicyNumber(policyNumber)
		dbRec, inDB := db.ByPolicyNumber(policyNumber)

		if !inDB {
			result.FileOnly = append(result.FileOnly, fileRec)
			continue
		}

		pair := domain.ReferencePair{
			PolicyNumber:      policyNumber,
			FileReference:     fileRec.ExternalReference,
			DatabaseReference: dbRec.ExternalReference,
		}
		if fileRec.ExternalReference == dbRec.ExternalReference {
			result.Matches = append(result.Matches, pair)
		} else {
			result.Mismatches = append(result.Mismatches, pair)
		}
	}

	dbNumbers := db.PolicyNumbers()
	sort.Strings(dbNumbers)

	for _, policyNumber := range dbNumbers {
		if _, inFile := file.ByPolicyNumber(policyNumber); !inFile {
			dbRec, _ := db.ByPolicyNumber(policyNumber)
			result.DatabaseOnly = append(result.DatabaseOnly, dbRec)
		}
	}

	// Database records with no reference at all are reported separately:
	// they can never match or mismatch by reference.
	without := append([]domain.PolicyRecord(nil), db.WithoutReference()...)
	sort.Slice(without, func(i, j int) bool {
		return without[i].PolicyNumber < without[j].PolicyNumber
	})
	result.WithoutExternalReference = without

	logger.GetLogger().WithFields(map[string]interface{}{
		"matches":           len(result.Matches),
		"mismatches":        len(result.Mismatches),
		"file_only":         len(result.FileOnly),
		"database_only":     len(result.DatabaseOnly),
		"without_reference": len(result.WithoutExternalReference),
	}).Info("Reference comparison completed")

	return result
}
