package channel

import (
	"io"
	"strings"
)

// Sentinel lines from the wire contract. Matched byte-for-byte and never
// forwarded as payload content.
const (
	BeginTransmission = "BEGINTRANSMISSION"
	NewTransmission   = "NEWTRANSMISSION"
	EndTransmission   = "ENDTRANSMISSION"
)

// PayloadSeparator joins the content lines of one request payload.
const PayloadSeparator = "\n"

// Assembler consumes the framed line stream of one connection and produces
// request payloads delimited by the boundary sentinels.
//
// Content lines are captured only between BEGINTRANSMISSION and the next
// boundary. NEWTRANSMISSION emits the accumulated payload (even an empty one)
// and deactivates capture, so every payload must be re-opened with a fresh
// BEGINTRANSMISSION. ENDTRANSMISSION terminates the sequence, flushing a
// non-empty accumulator as one final payload.
type Assembler struct {
	framer *LineFramer
	lines  []string
	active bool
	ended  bool
}

func NewAssembler(r io.Reader) *Assembler {
	return &Assembler{framer: NewLineFramer(r)}
}

// Next returns the next completed request payload.
//
// It returns io.EOF once ENDTRANSMISSION has been observed and any final
// buffered payload handed off. A transport or framing error discards the
// partial accumulator; nothing half-assembled is ever emitted.
func (a *Assembler) Next() (string, error) {
	if a.ended {
		return "", io.EOF
	}

	for {
		line, err := a.framer.Next()
		if err != nil {
			a.lines = nil
			a.active = false
			if err == io.EOF {
				// Stream closed without ENDTRANSMISSION.
				err = io.ErrUnexpectedEOF
			}
			return "", err
		}

		switch {
		case line == BeginTransmission:
			a.active = true
		case line == NewTransmission:
			payload := strings.Join(a.lines, PayloadSeparator)
			a.lines = nil
			a.active = false
			return payload, nil
		case line == EndTransmission:
			a.ended = true
			if len(a.lines) > 0 {
				payload := strings.Join(a.lines, PayloadSeparator)
				a.lines = nil
				return payload, nil
			}
			return "", io.EOF
		case a.active:
			a.lines = append(a.lines, line)
		default:
			// Content outside a transmission window is dropped.
		}
	}
}
