package util

import "fmt"

// DefaultLogMaxLen caps diagnostic bodies quoted in log lines and error
// messages (1KB).
const DefaultLogMaxLen = 1024

// TruncateLog truncates long strings quoted in diagnostics so upstream
// response bodies cannot blow up the log.
func TruncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + fmt.Sprintf("... [truncated, %d bytes total]", len(s))
}

// TruncateBytes is a convenience wrapper for TruncateLog that accepts []byte
// and uses DefaultLogMaxLen.
func TruncateBytes(b []byte) string {
	return TruncateLog(string(b), DefaultLogMaxLen)
}
