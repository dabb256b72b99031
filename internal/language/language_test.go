package language

import "testing"

func TestCode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "en"},
		{"EN", "en"},
		{" es ", "es"},
		{"spa", "es"},
		{"eng", "en"},
		{"Spanish", "es"},
		{"español", "es"},
		{"german", "de"},
	}
	for _, tt := range tests {
		got, err := Code(tt.input)
		if err != nil {
			t.Fatalf("Code(%q) error: %v", tt.input, err)
		}
		if got != tt.expected {
			t.Errorf("Code(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestCodeRejectsUnknown(t *testing.T) {
	for _, input := range []string{"", "   ", "not a language", "zzzzzz"} {
		if _, err := Code(input); err == nil {
			t.Errorf("Code(%q) expected error", input)
		}
	}
}

func TestName(t *testing.T) {
	if got := Name("es"); got != "Spanish" {
		t.Errorf("Name(es) = %q", got)
	}
	if got := Name("en"); got != "English" {
		t.Errorf("Name(en) = %q", got)
	}
	if got := Name("!!"); got != "!!" {
		t.Errorf("Name(!!) = %q", got)
	}
}
