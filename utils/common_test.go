package utils

import "testing"

func TestParseHints(t *testing.T) {
	hints, err := ParseHints(" 40:false, 12:true")
	if err != nil {
		t.Fatal(err)
	}
	if len(hints) != 2 || !hints[12] || hints[40] {
		t.Errorf("unexpected hints %v", hints)
	}
	if s := FormatHints(hints); s != "12:true,40:false" {
		t.Errorf("formatted as %q", s)
	}

	if hints, err := ParseHints(""); err != nil || len(hints) != 0 {
		t.Errorf("expected no hints, got %v, %v", hints, err)
	}
	for _, bad := range []string{"12", "x:true", "12:maybe"} {
		if _, err := ParseHints(bad); err == nil {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
}
