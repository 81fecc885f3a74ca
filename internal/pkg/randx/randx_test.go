package randx

import "testing"

func TestMessageIDIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := MessageID()
		if len(id) != 36 {
			t.Fatalf("unexpected id shape: %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id generated: %q", id)
		}
		seen[id] = true
	}
}

func TestIsValidRoomCode(t *testing.T) {
	tests := []struct {
		code  string
		valid bool
	}{
		{"AB12cd", true},
		{"000000", true},
		{"zzzzzz", true},
		{"AB12c", false},
		{"AB12cde", false},
		{"AB 2cd", false},
		{"AB-2cd", false},
		{"", false},
	}

	for _, tc := range tests {
		if got := IsValidRoomCode(tc.code); got != tc.valid {
			t.Errorf("IsValidRoomCode(%q) = %v, expected %v", tc.code, got, tc.valid)
		}
	}
}
