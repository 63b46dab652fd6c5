package channel

import (
	"bytes"
	"testing"
)

func TestWriteResponseExactBytes(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResponse(&buf, "/tmp/out.stl"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "REQUESTCOMPLETE\r\nstl:/tmp/out.stl\r\n"
	if got := buf.String(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestWriteResponseEmptyResult(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResponse(&buf, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := buf.String(); got != "REQUESTCOMPLETE\r\nstl:\r\n" {
		t.Fatalf("unexpected response bytes: %q", got)
	}
}
