package channel

import (
	"errors"
	"io"
	"strings"
	"testing"
)

// drainLines reads the framer until a terminal error and returns everything
// it emitted.
func drainLines(t *testing.T, input string) ([]string, error) {
	t.Helper()
	f := NewLineFramer(strings.NewReader(input))
	var lines []string
	for {
		line, err := f.Next()
		if err != nil {
			return lines, err
		}
		lines = append(lines, line)
	}
}

func TestLineFramerSplitsOnCRLF(t *testing.T) {
	lines, err := drainLines(t, "alpha\r\nbeta\r\n\r\n")
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	want := []string{"alpha", "beta", ""}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d: %q", len(want), len(lines), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}
}

func TestLineFramerDropsLoneCR(t *testing.T) {
	lines, err := drainLines(t, "al\rpha\r\n")
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	if len(lines) != 1 || lines[0] != "alpha" {
		t.Fatalf("expected lone CR to be dropped, got %q", lines)
	}
}

func TestLineFramerDropsStackedCR(t *testing.T) {
	// Only the CR immediately before LF terminates; the earlier ones vanish.
	lines, err := drainLines(t, "a\r\r\r\nb\r\n")
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	if len(lines) != 2 || lines[0] != "a" || lines[1] != "b" {
		t.Fatalf("expected [a b], got %q", lines)
	}
}

func TestLineFramerKeepsLoneLFAsContent(t *testing.T) {
	lines, err := drainLines(t, "al\npha\r\n")
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	if len(lines) != 1 || lines[0] != "al\npha" {
		t.Fatalf("expected lone LF kept as content, got %q", lines)
	}
}

func TestLineFramerPartialLineAtEOF(t *testing.T) {
	lines, err := drainLines(t, "alpha\r\nunterminated")
	if !errors.Is(err, ErrPartialLine) {
		t.Fatalf("expected ErrPartialLine, got %v", err)
	}
	if len(lines) != 1 || lines[0] != "alpha" {
		t.Fatalf("expected only the completed line, got %q", lines)
	}
}

func TestLineFramerPendingCRAtEOFIsClean(t *testing.T) {
	// A trailing CR with nothing buffered is not a partial line.
	lines, err := drainLines(t, "alpha\r\n\r")
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	if len(lines) != 1 || lines[0] != "alpha" {
		t.Fatalf("expected [alpha], got %q", lines)
	}
}

func TestLineFramerEmptyStream(t *testing.T) {
	lines, err := drainLines(t, "")
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("expected no lines, got %q", lines)
	}
}
