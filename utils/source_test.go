package utils

import "testing"

func TestIsDirectURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"https://cdn.test/a.mp3", true},
		{"http://cdn.test/a.mp3", true},
		{"  https://cdn.test/a.mp3 ", true},
		{"jazz", false},
		{"lofi hip hop", false},
		{"ftp://cdn.test/a.mp3", false},
		{"https://", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsDirectURL(tt.in); got != tt.want {
			t.Errorf("IsDirectURL(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSafeFilename(t *testing.T) {
	t.Parallel()

	if got := SafeFilename("AC/DC: Back?"); got != "AC_DC_ Back_" {
		t.Errorf("SafeFilename() = %q", got)
	}
	if got := SafeFilename("   "); got != "untitled" {
		t.Errorf("SafeFilename(blank) = %q", got)
	}
}
