package connectivity

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProber_ReachableAddress(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	monitor := NewMonitor(false, zerolog.Nop())
	prober := NewProber(monitor, ln.Addr().String(), time.Second, zerolog.Nop())

	require.NoError(t, prober.Run())
	assert.True(t, monitor.Online())
	assert.Equal(t, "connectivity_probe", prober.Name())
}

func TestProber_UnreachableAddress(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	monitor := NewMonitor(true, zerolog.Nop())
	prober := NewProber(monitor, addr, time.Second, zerolog.Nop())

	require.NoError(t, prober.Run(), "probe failures are state, not errors")
	assert.False(t, monitor.Online())
}

func TestProber_RespectsContext(t *testing.T) {
	prober := NewProber(NewMonitor(true, zerolog.Nop()), "127.0.0.1:1", 0, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, prober.Probe(ctx))
}
