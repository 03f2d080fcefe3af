package textenc

import (
	"testing"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

func encodeShiftJIS(t *testing.T, s string) []byte {
	t.Helper()
	out, _, err := transform.Bytes(japanese.ShiftJIS.NewEncoder(), []byte(s))
	if err != nil {
		t.Fatalf("encode Shift_JIS: %v", err)
	}
	return out
}

func encodeEUCJP(t *testing.T, s string) []byte {
	t.Helper()
	out, _, err := transform.Bytes(japanese.EUCJP.NewEncoder(), []byte(s))
	if err != nil {
		t.Fatalf("encode EUC-JP: %v", err)
	}
	return out
}

func TestResolve_UTF8(t *testing.T) {
	want := "氏名,センサーID,日時,温度\n山田太郎,WT-001,2023/7/15 8:30:00,36.2\n"

	got, err := Resolve([]byte(want))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
}

func TestResolve_UTF8BOM(t *testing.T) {
	want := "日付,時刻,WBGT\n2023/7/15,10:00:00,28.5\n"
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte(want)...)

	got, err := Resolve(data)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != want {
		t.Errorf("Resolve() should strip the BOM, got %q", got)
	}
}

func TestResolve_ShiftJIS(t *testing.T) {
	want := "氏名,温度\n山田太郎,36.2\n"
	data := encodeShiftJIS(t, want)

	got, err := Resolve(data)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
}

func TestResolve_EUCJP(t *testing.T) {
	// Hiragana-heavy content keeps the statistical detector unambiguous.
	want := "被験者のなまえ,センサーのばんごう\n" +
		"やまだたろう,WT-001\n" +
		"さとうはなこ,WT-002\n" +
		"すずきいちろう,WT-003\n"
	data := encodeEUCJP(t, want)

	got, err := Resolve(data)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
}

func TestResolve_ASCII(t *testing.T) {
	want := "Name,Sensor,Temp\nAlice,WT-1,36.0\n"

	got, err := Resolve([]byte(want))
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
}
