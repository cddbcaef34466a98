package normalizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidExternalReference(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{"valid reference", "922512345678901234", true},
		{"wrong length", "92251234", false},
		{"non-digit prefix", "A22512345678901234", false},
		{"wrong prefix", "122512345678901234", false},
		{"non-digit in body", "9225123456789O1234", false},
		{"too long", "9225123456789012345", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidExternalReference(tt.input))
		})
	}
}

func TestNormalizeReference(t *testing.T) {
	assert.Equal(t, "922512345678901234", NormalizeReference(" 9225 1234-5678/9012.34 "))
	assert.Equal(t, "ABC123", NormalizeReference("abc 123"))
	assert.Equal(t, "", NormalizeReference("  --  "))
	assert.Equal(t, "", NormalizeReference(""))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2024-01-15", "2024-01-15"},
		{"2024/01/15", "2024-01-15"},
		{"01/15/2024", "2024-01-15"},
		{"1/5/2024", "2024-01-05"},
		{"2024-01-15 09:30:00", "2024-01-15"},
		{"2024-01-15T23:59:59Z", "2024-01-15"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			date, err := ParseDate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, date.String())
		})
	}
}

func TestParseDate_Malformed(t *testing.T) {
	for _, input := range []string{"", "not a date", "15-01-2024", "2024-13-01"} {
		_, err := ParseDate(input)
		require.Error(t, err, input)

		var malformed *MalformedKeyError
		assert.ErrorAs(t, err, &malformed)
	}
}

func TestCanonicalDate_DiscardsTimeAndZone(t *testing.T) {
	loc := time.FixedZone("UTC+11", 11*3600)
	late := time.Date(2024, 1, 15, 23, 45, 0, 0, loc)

	assert.Equal(t, CanonicalDate{Year: 2024, Month: time.January, Day: 15}, FromTime(late))
}

func TestCanonicalDate_Formats(t *testing.T) {
	d := CanonicalDate{Year: 2024, Month: time.January, Day: 5}
	assert.Equal(t, "2024-01-05", d.String())
	assert.Equal(t, "2024/01/05", d.Ledger())
}
