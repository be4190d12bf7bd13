package llm

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestTruncateForError(t *testing.T) {
	short := "bad request"
	if got := truncateForError(short); got != short {
		t.Fatalf("short body must pass through, got %q", got)
	}

	// The leading ASCII byte puts the cut offset inside a two-byte rune.
	long := "a" + strings.Repeat("é", maxErrorBodyLen)
	got := truncateForError(long)
	if !strings.HasSuffix(got, "...(truncated)") {
		t.Fatalf("expected truncation marker, got %q", got)
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncation split a rune: %q", got)
	}
	if len(got) > maxErrorBodyLen+len("...(truncated)") {
		t.Fatalf("body not capped: %d bytes", len(got))
	}
}
