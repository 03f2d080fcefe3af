package decode

import "testing"

func TestColumnMatcherMatch(t *testing.T) {
	m := ColumnMatcher{Slot: "temperature", Keywords: []string{"温度", "temperature", "temp"}}

	tests := []struct {
		header string
		want   bool
	}{
		{"温度", true},
		{"皮膚温度 (℃)", true},
		{"Temperature", true},
		{"TEMP", true},
		{` "temperature" `, true},
		{"humidity", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := m.Match(tt.header); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}

func TestResolveColumns_ClaimOrder(t *testing.T) {
	// WBGT labels often contain a temperature keyword, so the more
	// specific matcher must run first and claim its column.
	matchers := []ColumnMatcher{
		{Slot: "wbgt", Keywords: []string{"wbgt"}},
		{Slot: "ambient", Keywords: []string{"temp"}},
	}
	header := []string{"WBGT Temp", "Air Temp"}

	cols := ResolveColumns(header, matchers)
	if cols["wbgt"] != 0 {
		t.Errorf("wbgt column = %d, want 0", cols["wbgt"])
	}
	if cols["ambient"] != 1 {
		t.Errorf("ambient column = %d, want 1", cols["ambient"])
	}
}

func TestResolveColumns_MissingSlotAbsent(t *testing.T) {
	matchers := []ColumnMatcher{
		{Slot: "date", Keywords: []string{"date"}},
		{Slot: "humidity", Keywords: []string{"humidity"}},
	}
	cols := ResolveColumns([]string{"Date", "Temp"}, matchers)

	if _, ok := cols["humidity"]; ok {
		t.Error("humidity should be absent from the result")
	}
	if cols["date"] != 0 {
		t.Errorf("date column = %d, want 0", cols["date"])
	}
}

func TestFindAllColumns(t *testing.T) {
	m := ColumnMatcher{Slot: "lap", Keywords: []string{"lap"}}
	header := []string{"Bib", "Lap 1", "Swim", "Lap 2", "Lap 3"}

	got := m.FindAllColumns(header)
	want := []int{1, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("FindAllColumns = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("FindAllColumns[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
