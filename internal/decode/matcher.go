package decode

import "strings"

// ColumnMatcher locates the column for one semantic slot by an ordered
// keyword list. Matching is case-insensitive substring containment
// against the cleaned header cell; the first column that matches any
// keyword wins. Keeping the keywords in data rather than in parsing
// control flow lets new vendor layouts be supported by extending a
// table.
type ColumnMatcher struct {
	Slot     string
	Keywords []string
}

// Match reports whether the header cell satisfies this matcher.
func (m ColumnMatcher) Match(header string) bool {
	h := strings.ToLower(cleanCell(header))
	if h == "" {
		return false
	}
	for _, kw := range m.Keywords {
		if strings.Contains(h, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// FindColumn returns the index of the first column matching m, or -1.
func (m ColumnMatcher) FindColumn(header []string) int {
	for i, h := range header {
		if m.Match(h) {
			return i
		}
	}
	return -1
}

// ResolveColumns maps each matcher's slot to a column index. Matchers
// are applied in order and a column claimed by an earlier slot is not
// offered to later ones, so more specific matchers must come first.
// Slots with no matching column are absent from the result.
func ResolveColumns(header []string, matchers []ColumnMatcher) map[string]int {
	claimed := make(map[int]bool, len(matchers))
	out := make(map[string]int, len(matchers))
	for _, m := range matchers {
		for i, h := range header {
			if claimed[i] || !m.Match(h) {
				continue
			}
			out[m.Slot] = i
			claimed[i] = true
			break
		}
	}
	return out
}

// FindAllColumns returns every column index matching m, in header order.
func (m ColumnMatcher) FindAllColumns(header []string) []int {
	var out []int
	for i, h := range header {
		if m.Match(h) {
			out = append(out, i)
		}
	}
	return out
}
