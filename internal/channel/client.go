package channel

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	ErrAddressRequired    = errors.New("channel: address required")
	ErrSessionClosed      = errors.New("channel: session closed")
	ErrUnexpectedResponse = errors.New("channel: unexpected response line")
)

// ClientConfig holds dial and retry settings for one channel endpoint.
type ClientConfig struct {
	Address            string
	ConnectTimeout     time.Duration
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	MaxConnectAttempts int // zero or negative retries forever
	Backoff            BackoffConfig
}

func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   15 * time.Second,
		Backoff:        DefaultBackoffConfig(),
	}
}

// Client dials a channel server and opens submission sessions.
type Client struct {
	cfg ClientConfig
	rng *rand.Rand
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if strings.TrimSpace(cfg.Address) == "" {
		return nil, ErrAddressRequired
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultClientConfig().ConnectTimeout
	}
	if cfg.Backoff.InitialDelay <= 0 {
		cfg.Backoff = DefaultBackoffConfig()
	}
	return &Client{
		cfg: cfg,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Connect dials the endpoint with backoff retry and returns a live session.
func (c *Client) Connect(ctx context.Context) (*Session, error) {
	var attempt int
	for {
		attempt++
		dialer := net.Dialer{Timeout: c.cfg.ConnectTimeout}
		conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Address)
		if err == nil {
			return &Session{conn: conn, framer: NewLineFramer(conn), cfg: c.cfg}, nil
		}
		log.Warn().Int("attempt", attempt).Str("addr", c.cfg.Address).Err(err).Msg("channel dial failed")
		if c.cfg.MaxConnectAttempts > 0 && attempt >= c.cfg.MaxConnectAttempts {
			return nil, err
		}
		delay := NextBackoffDelay(c.cfg.Backoff, attempt, c.rng)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// Session is one long-lived connection over which any number of requests can
// be submitted before the end signal is sent.
type Session struct {
	conn   net.Conn
	framer *LineFramer
	cfg    ClientConfig
}

// Submit frames one payload as a complete bracketed transmission: the begin
// signal, each payload line CRLF-terminated, then the separator signal.
func (s *Session) Submit(ctx context.Context, payload string) error {
	if s.conn == nil {
		return ErrSessionClosed
	}
	var b strings.Builder
	b.WriteString(BeginTransmission)
	b.WriteString("\r\n")
	for _, line := range strings.Split(payload, PayloadSeparator) {
		b.WriteString(line)
		b.WriteString("\r\n")
	}
	b.WriteString(NewTransmission)
	b.WriteString("\r\n")

	if err := s.setWriteDeadline(ctx); err != nil {
		return err
	}
	if _, err := s.conn.Write([]byte(b.String())); err != nil {
		return fmt.Errorf("channel: submit: %w", err)
	}
	return nil
}

// AwaitResult reads the server completion response: the REQUESTCOMPLETE
// marker followed by one stl: result line. It returns the result with the
// prefix stripped.
func (s *Session) AwaitResult(ctx context.Context) (string, error) {
	if s.conn == nil {
		return "", ErrSessionClosed
	}
	if err := s.setReadDeadline(ctx); err != nil {
		return "", err
	}
	marker, err := s.framer.Next()
	if err != nil {
		return "", err
	}
	if marker != RequestComplete {
		return "", fmt.Errorf("%w: %q", ErrUnexpectedResponse, marker)
	}
	result, err := s.framer.Next()
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(result, ResultPrefix) {
		return "", fmt.Errorf("%w: %q", ErrUnexpectedResponse, result)
	}
	return strings.TrimPrefix(result, ResultPrefix), nil
}

// End sends the end-of-transmission signal. The server shuts the connection
// down once it observes the signal.
func (s *Session) End() error {
	if s.conn == nil {
		return ErrSessionClosed
	}
	if _, err := s.conn.Write([]byte(EndTransmission + "\r\n")); err != nil {
		return fmt.Errorf("channel: end transmission: %w", err)
	}
	return nil
}

func (s *Session) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *Session) setWriteDeadline(ctx context.Context) error {
	if s.cfg.WriteTimeout <= 0 {
		return nil
	}
	deadline := time.Now().Add(s.cfg.WriteTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	return s.conn.SetWriteDeadline(deadline)
}

func (s *Session) setReadDeadline(ctx context.Context) error {
	if s.cfg.ReadTimeout <= 0 {
		return nil
	}
	deadline := time.Now().Add(s.cfg.ReadTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	return s.conn.SetReadDeadline(deadline)
}
