package textutil

import (
	"strings"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	cases := []struct{ input, want string }{
		{"Episode 12: AI/ML?", "Episode 12- AI-ML"},
		{"  ..hidden  title\t\n ", "hidden title"},
		{"<Bad> \"quotes\" | pipe", "Bad quotes pipe"},
		{"第 3 集：晶片戰爭", "第 3 集：晶片戰爭"},
		{"", ""},
		{"with\x00control\x07chars", "withcontrolchars"},
	}
	for _, tc := range cases {
		if got := SanitizeFileName(tc.input); got != tc.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestSanitizeFileNameCapsLength(t *testing.T) {
	long := strings.Repeat("長", 200)
	got := SanitizeFileName(long)
	if n := len([]rune(got)); n != 80 {
		t.Fatalf("expected 80 runes, got %d", n)
	}
}
