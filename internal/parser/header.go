package parser

import "strings"

// canonicalHeader reduces a header cell to a comparable form: lower-cased
// with spaces, underscores and hyphens removed. "Effective Date",
// "effective_date" and "EffectiveDate" all reduce to "effectivedate".
func canonicalHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
	return h
}

// mapColumns resolves each known field to its column position using the
// field's accepted aliases. Returns -1 for fields not present.
func mapColumns(header []string, aliases map[string][]string) map[string]int {
	positions := make(map[string]int, len(header))
	for i, cell := range header {
		positions[canonicalHeader(cell)] = i
	}

	columns := make(map[string]int, len(aliases))
	for field, names := range aliases {
		columns[field] = -1
		for _, name := range names {
			if pos, ok := positions[canonicalHeader(name)]; ok {
				columns[field] = pos
				break
			}
		}
	}
	return columns
}

func cellAt(record []string, col int) string {
	if col < 0 || col >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[col])
}
