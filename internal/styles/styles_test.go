package styles

import "testing"

func TestDurationCaseInsensitive(t *testing.T) {
	for _, name := range []string{"Knotless Braids", "knotless braids", "  KNOTLESS BRAIDS "} {
		d, ok := Duration(name)
		if !ok || d != 300 {
			t.Fatalf("Duration(%q) = %d, %v", name, d, ok)
		}
	}
}

func TestDurationOrDefault(t *testing.T) {
	if got := DurationOrDefault("Micro Braids", 90); got != 480 {
		t.Fatalf("catalog style must win, got %d", got)
	}
	if got := DurationOrDefault("Silk Press", 90); got != 90 {
		t.Fatalf("unknown style must use salon default, got %d", got)
	}
	if got := DurationOrDefault("Silk Press", 0); got != FallbackDurationMinutes {
		t.Fatalf("missing salon default must fall back, got %d", got)
	}
}
