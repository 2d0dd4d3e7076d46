package util

import (
	"strings"
	"testing"
)

func TestTruncateLog(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"empty", "", 10, ""},
		{"under limit", "short log", DefaultLogMaxLen, "short log"},
		{"at limit", "12345678901234567890", 20, "12345678901234567890"},
		{"over limit", "1234567890abcdefghij", 10, "1234567890... [truncated, 20 bytes total]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateLog(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("TruncateLog(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestTruncateBytes(t *testing.T) {
	if got := TruncateBytes([]byte("short")); got != "short" {
		t.Errorf("TruncateBytes() = %q, want %q", got, "short")
	}

	long := []byte(strings.Repeat("x", 2*DefaultLogMaxLen))
	got := TruncateBytes(long)
	if !strings.HasPrefix(got, string(long[:DefaultLogMaxLen])) {
		t.Error("TruncateBytes() should preserve the first DefaultLogMaxLen bytes")
	}
	if !strings.HasSuffix(got, "[truncated, 2048 bytes total]") {
		t.Errorf("TruncateBytes() missing truncation suffix, got tail %q", got[len(got)-40:])
	}
}
