package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLedgerExtract_HeaderAliases(t *testing.T) {
	variants := []string{
		"Effective Date,MembershipID\n2024/01/15,P-100\n",
		"effective_date,membership_id\n2024-01-15,P-100\n",
		"EffectiveDate,Membership ID\n01/15/2024,P-100\n",
	}

	for _, csv := range variants {
		result, err := ParseLedgerExtract("extract.csv", strings.NewReader(csv))
		require.NoError(t, err, csv)
		require.Len(t, result.Rows, 1)
		assert.Equal(t, "P-100", result.Rows[0].MembershipID)
		assert.Equal(t, "2024-01-15", result.Rows[0].EffectiveDate.String())
		assert.Empty(t, result.RowErrors)
	}
}

func TestParseLedgerExtract_ColumnOrderIrrelevant(t *testing.T) {
	csv := "MembershipID,Effective Date,Amount\nP-100,2024/01/15,500.00\n"

	result, err := ParseLedgerExtract("extract.csv", strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "P-100", result.Rows[0].MembershipID)
}

func TestParseLedgerExtract_RowErrorsAccumulate(t *testing.T) {
	csv := "Effective Date,MembershipID\n" +
		"2024/01/15,P-100\n" +
		"not-a-date,P-200\n" +
		"2024/01/16,\n" +
		"2024/01/17,P-300\n"

	result, err := ParseLedgerExtract("extract.csv", strings.NewReader(csv))

	require.NoError(t, err, "row errors must not abort the parse")
	assert.Len(t, result.Rows, 2)
	require.Len(t, result.RowErrors, 2)
	assert.Equal(t, 3, result.RowErrors[0].Line)
	assert.Equal(t, "effective_date", result.RowErrors[0].Field)
	assert.Equal(t, 4, result.RowErrors[1].Line)
	assert.Equal(t, "membership_id", result.RowErrors[1].Field)
}

func TestParseLedgerExtract_MissingHeaderAborts(t *testing.T) {
	csv := "SomeColumn,MembershipID\nx,P-100\n"

	_, err := ParseLedgerExtract("extract.csv", strings.NewReader(csv))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "effective_date")
}

func TestParseLedgerExtract_BlankRowsSkipped(t *testing.T) {
	csv := "Effective Date,MembershipID\n2024/01/15,P-100\n,\n"

	result, err := ParseLedgerExtract("extract.csv", strings.NewReader(csv))

	require.NoError(t, err)
	assert.Len(t, result.Rows, 1)
	assert.Empty(t, result.RowErrors)
}

func TestParseLedgerExtract_TimestampReducedToDate(t *testing.T) {
	csv := "Effective Date,MembershipID\n2024-01-15 13:45:00,P-100\n"

	result, err := ParseLedgerExtract("extract.csv", strings.NewReader(csv))

	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "2024-01-15", result.Rows[0].EffectiveDate.String())
}

func TestParseReferenceFile_Aliases(t *testing.T) {
	csv := "Policy Number,Reference,Member Name,Product\n" +
		"P-100,922512345678901234,J Mokoena,Family Cover\n" +
		"P-200,,T Dlamini,Single Cover\n"

	result, err := ParseReferenceFile("reference.csv", strings.NewReader(csv))

	require.NoError(t, err)
	require.Len(t, result.Records, 2)
	assert.Equal(t, "P-100", result.Records[0].PolicyNumber)
	assert.Equal(t, "922512345678901234", result.Records[0].ExternalReference)
	assert.Equal(t, "J Mokoena", result.Records[0].MemberName)
	assert.Empty(t, result.Records[1].ExternalReference)
}

func TestParseReferenceFile_MissingPolicyNumberColumn(t *testing.T) {
	csv := "Reference,Member Name\n922512345678901234,J Mokoena\n"

	_, err := ParseReferenceFile("reference.csv", strings.NewReader(csv))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "policy_number")
}

func TestParseReferenceFile_RowErrors(t *testing.T) {
	csv := "PolicyNumber,ExternalReference\n" +
		"P-100,922512345678901234\n" +
		",922500000000000000\n"

	result, err := ParseReferenceFile("reference.csv", strings.NewReader(csv))

	require.NoError(t, err)
	assert.Len(t, result.Records, 1)
	require.Len(t, result.RowErrors, 1)
	assert.Equal(t, 3, result.RowErrors[0].Line)
}

func TestCanonicalHeader(t *testing.T) {
	assert.Equal(t, "effectivedate", canonicalHeader(" Effective Date "))
	assert.Equal(t, "effectivedate", canonicalHeader("effective_date"))
	assert.Equal(t, "effectivedate", canonicalHeader("EffectiveDate"))
	assert.Equal(t, "membershipid", canonicalHeader("Membership-ID"))
}
