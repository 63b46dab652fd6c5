package channel

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/relieflab/reliefd/internal/testutil/testlog"
)

func TestClientRequiresAddress(t *testing.T) {
	if _, err := NewClient(ClientConfig{}); !errors.Is(err, ErrAddressRequired) {
		t.Fatalf("expected ErrAddressRequired, got %v", err)
	}
}

func TestClientRoundTrip(t *testing.T) {
	testlog.Start(t)

	echo := HandlerFunc(func(ctx context.Context, req *Request) {
		_ = req.Respond("/out/" + req.Payload + ".stl")
	})
	srv := NewServer(DefaultConfig(), echo)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx, ln)
	}()

	client, err := NewClient(ClientConfig{
		Address:            ln.Addr().String(),
		MaxConnectAttempts: 1,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	session, err := client.Connect(ctx)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer session.Close()

	if err := session.Submit(ctx, "jobA"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	result, err := session.AwaitResult(ctx)
	if err != nil {
		t.Fatalf("await result: %v", err)
	}
	if result != "/out/jobA.stl" {
		t.Fatalf("unexpected result: %q", result)
	}

	if err := session.End(); err != nil {
		t.Fatalf("end: %v", err)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("server did not stop")
	}
}

func TestClientConnectRetriesExhausted(t *testing.T) {
	testlog.Start(t)

	// Bind then close to get an address that refuses connections.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	client, err := NewClient(ClientConfig{
		Address:            addr,
		ConnectTimeout:     200 * time.Millisecond,
		MaxConnectAttempts: 2,
		Backoff: BackoffConfig{
			InitialDelay: 10 * time.Millisecond,
			Multiplier:   1.0,
			MaxDelay:     10 * time.Millisecond,
		},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := client.Connect(context.Background()); err == nil {
		t.Fatalf("expected dial failure after retries")
	}
}

func TestSessionClosedOperationsFail(t *testing.T) {
	s := &Session{}
	if err := s.Submit(context.Background(), "x"); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed from Submit, got %v", err)
	}
	if _, err := s.AwaitResult(context.Background()); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed from AwaitResult, got %v", err)
	}
	if err := s.End(); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed from End, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close of closed session: %v", err)
	}
}
