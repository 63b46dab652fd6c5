package channel

import (
	"errors"
	"io"
	"strings"
	"testing"
)

func drainPayloads(t *testing.T, input string) ([]string, error) {
	t.Helper()
	a := NewAssembler(strings.NewReader(input))
	var payloads []string
	for {
		p, err := a.Next()
		if err != nil {
			return payloads, err
		}
		payloads = append(payloads, p)
	}
}

func wire(lines ...string) string {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteString("\r\n")
	}
	return b.String()
}

func TestAssemblerSinglePayload(t *testing.T) {
	payloads, err := drainPayloads(t, wire(
		BeginTransmission,
		`{"a":1}`,
		NewTransmission,
		EndTransmission,
	))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	if len(payloads) != 1 || payloads[0] != `{"a":1}` {
		t.Fatalf("expected one payload, got %q", payloads)
	}
}

func TestAssemblerMultiLinePayload(t *testing.T) {
	payloads, err := drainPayloads(t, wire(
		BeginTransmission,
		"foo",
		"bar",
		NewTransmission,
		EndTransmission,
	))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	if len(payloads) != 1 || payloads[0] != "foo\nbar" {
		t.Fatalf("expected joined payload, got %q", payloads)
	}
}

func TestAssemblerEmptyPayloadEmitted(t *testing.T) {
	payloads, err := drainPayloads(t, wire(
		BeginTransmission,
		NewTransmission,
		EndTransmission,
	))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	if len(payloads) != 1 || payloads[0] != "" {
		t.Fatalf("expected one empty payload, got %q", payloads)
	}
}

func TestAssemblerSeparatorWithoutBeginStillEmits(t *testing.T) {
	// NEWTRANSMISSION always emits what was captured, even outside a window.
	payloads, err := drainPayloads(t, wire(
		NewTransmission,
		EndTransmission,
	))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	if len(payloads) != 1 || payloads[0] != "" {
		t.Fatalf("expected one empty payload, got %q", payloads)
	}
}

func TestAssemblerContentWithoutBeginDropped(t *testing.T) {
	payloads, err := drainPayloads(t, wire(
		"stray",
		BeginTransmission,
		"kept",
		NewTransmission,
		EndTransmission,
	))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	if len(payloads) != 1 || payloads[0] != "kept" {
		t.Fatalf("expected stray content dropped, got %q", payloads)
	}
}

func TestAssemblerContentAfterSeparatorNeedsFreshBegin(t *testing.T) {
	// Capture deactivates after every separator. Content without a fresh
	// begin signal is dropped.
	payloads, err := drainPayloads(t, wire(
		BeginTransmission,
		"first",
		NewTransmission,
		"lost",
		NewTransmission,
		BeginTransmission,
		"second",
		NewTransmission,
		EndTransmission,
	))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	want := []string{"first", "", "second"}
	if len(payloads) != len(want) {
		t.Fatalf("expected %d payloads, got %q", len(want), payloads)
	}
	for i := range want {
		if payloads[i] != want[i] {
			t.Fatalf("payload %d: expected %q, got %q", i, want[i], payloads[i])
		}
	}
}

func TestAssemblerEndFlushesBufferedPayload(t *testing.T) {
	payloads, err := drainPayloads(t, wire(
		BeginTransmission,
		"tail",
		EndTransmission,
	))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	if len(payloads) != 1 || payloads[0] != "tail" {
		t.Fatalf("expected flushed payload, got %q", payloads)
	}
}

func TestAssemblerAbruptCloseDiscardsPartial(t *testing.T) {
	payloads, err := drainPayloads(t, wire(
		BeginTransmission,
		"half",
	))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected io.ErrUnexpectedEOF, got %v", err)
	}
	if len(payloads) != 0 {
		t.Fatalf("expected no payloads from abrupt close, got %q", payloads)
	}
}

func TestAssemblerFramingErrorDiscardsPartial(t *testing.T) {
	input := wire(BeginTransmission, "half") + "unterminated"
	payloads, err := drainPayloads(t, input)
	if !errors.Is(err, ErrPartialLine) {
		t.Fatalf("expected ErrPartialLine, got %v", err)
	}
	if len(payloads) != 0 {
		t.Fatalf("expected no payloads, got %q", payloads)
	}
}

func TestAssemblerStaysEndedAfterEnd(t *testing.T) {
	a := NewAssembler(strings.NewReader(wire(EndTransmission, BeginTransmission, "late", NewTransmission)))
	if _, err := a.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	if _, err := a.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF on repeat call, got %v", err)
	}
}
