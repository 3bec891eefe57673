package probe

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Status is the normalised outcome of a connectivity probe.
type Status int

const (
	// Disconnected means the handshake failed for any reason.
	Disconnected Status = iota
	// Connected means the TCP handshake completed.
	Connected
)

func (s Status) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// Outcome describes one probe attempt. Reason carries the dial error text
// for logging only.
type Outcome struct {
	Status    Status
	Latency   time.Duration
	Reason    string
	CheckedAt time.Time
}

// Prober performs a single connectivity check.
type Prober interface {
	Check(ctx context.Context) Outcome
}

// Options parameterise the TCP prober.
type Options struct {
	IP      string
	Port    int
	Timeout time.Duration
}

// TCP probes reachability by opening and immediately closing a TCP connection.
type TCP struct {
	address string
	dialer  net.Dialer
	logger  zerolog.Logger
}

// NewTCP builds a TCP prober. A non-positive timeout falls back to one second.
func NewTCP(opts Options, logger zerolog.Logger) *TCP {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Second
	}
	return &TCP{
		address: net.JoinHostPort(opts.IP, strconv.Itoa(opts.Port)),
		dialer:  net.Dialer{Timeout: timeout},
		logger:  logger.With().Str("component", "probe").Logger(),
	}
}

// Address returns the dialed host:port.
func (p *TCP) Address() string {
	return p.address
}

// Check dials the target once. Refusals, timeouts and resolution failures
// are all reported as Disconnected.
func (p *TCP) Check(ctx context.Context) Outcome {
	started := time.Now()
	conn, err := p.dialer.DialContext(ctx, "tcp", p.address)
	outcome := Outcome{
		Latency:   time.Since(started),
		CheckedAt: time.Now().UTC(),
	}
	if err != nil {
		outcome.Status = Disconnected
		outcome.Reason = err.Error()
		p.logger.Debug().Err(err).Str("address", p.address).Dur("elapsed", outcome.Latency).Msg("probe failed")
		return outcome
	}
	_ = conn.Close()

	outcome.Status = Connected
	p.logger.Debug().Str("address", p.address).Dur("latency", outcome.Latency).Msg("probe succeeded")
	return outcome
}

var _ Prober = (*TCP)(nil)
