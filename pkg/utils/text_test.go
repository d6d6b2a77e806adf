package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
	if got := Truncate("日本語テキスト", 3); got != "日本語..." {
		t.Errorf("multi-byte truncate got %s", got)
	}
}

func TestCapitalize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"nvidia", "Nvidia"},
		{"CHROME OS", "Chrome os"},
		{"2 in 1 convertible", "2 in 1 convertible"},
		{"hp", "Hp"},
	}
	for _, tt := range tests {
		if got := Capitalize(tt.in); got != tt.want {
			t.Errorf("Capitalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsAlpha(t *testing.T) {
	if !IsAlpha("notebook") {
		t.Error("notebook is alphabetic")
	}
	for _, s := range []string{"", "16gb", "x-y", "two words"} {
		if IsAlpha(s) {
			t.Errorf("IsAlpha(%q) = true", s)
		}
	}
}
