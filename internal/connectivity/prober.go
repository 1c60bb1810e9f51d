package connectivity

import (
	"context"
	"net"
	"time"

	"github.com/rs/zerolog"
)

// Dialer opens network connections; satisfied by *net.Dialer
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Prober checks reachability by opening a TCP connection and feeds the result to a Monitor.
// It runs as a scheduled job.
type Prober struct {
	monitor *Monitor
	addr    string
	timeout time.Duration
	dialer  Dialer
	log     zerolog.Logger
}

// NewProber creates a prober dialing addr (host:port)
func NewProber(monitor *Monitor, addr string, timeout time.Duration, log zerolog.Logger) *Prober {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Prober{
		monitor: monitor,
		addr:    addr,
		timeout: timeout,
		dialer:  &net.Dialer{},
		log:     log.With().Str("component", "connectivity_prober").Logger(),
	}
}

// Name returns the job name
func (p *Prober) Name() string {
	return "connectivity_probe"
}

// Run probes once and updates the monitor. Probe failures are state, not errors.
func (p *Prober) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	p.monitor.Set(p.Probe(ctx))
	return nil
}

// Probe reports whether addr accepts a TCP connection before ctx expires
func (p *Prober) Probe(ctx context.Context) bool {
	conn, err := p.dialer.DialContext(ctx, "tcp", p.addr)
	if err != nil {
		p.log.Debug().Err(err).Str("addr", p.addr).Msg("Probe failed")
		return false
	}
	_ = conn.Close()
	return true
}
