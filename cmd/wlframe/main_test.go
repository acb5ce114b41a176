package main

import (
	"context"
	"testing"
	"time"

	wl "deedles.dev/wlframe/client"
	"deedles.dev/wlframe/config"
	"deedles.dev/wlframe/internal/debug"
	"deedles.dev/wlframe/internal/wltest"
	"deedles.dev/wlframe/shm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeferredFrame(t *testing.T) {
	srv := wltest.Server{
		Globals: []wltest.Global{
			{Name: 1, Interface: "wl_shm", Version: 1},
			{Name: 2, Interface: "wl_compositor", Version: 5},
			{Name: 3, Interface: "xdg_wm_base", Version: 4},
		},
		Formats: []uint32{uint32(wl.ShmFormatXrgb8888)},
	}
	ct, st := wltest.Pipe()
	srv.Start(st)

	c := wl.NewClient(ct)
	c.Timeout = 5 * time.Second
	t.Cleanup(func() { c.Close() })

	ctx := context.Background()
	sync := func() {
		t.Helper()
		require.NoError(t, c.RoundTrip(ctx))
		require.NoError(t, c.Flush())
		require.NoError(t, c.RoundTrip(ctx))
	}

	cfg := config.Default()
	cfg.Width, cfg.Height, cfg.Buffers = 64, 64, 1
	state := state{ctx: ctx, cfg: cfg, log: debug.Log}
	require.NoError(t, state.setup(c))

	sync()
	buf := state.chain.Buffers()[0]
	assert.Equal(t, shm.Presented, buf.State())
	assert.Equal(t, []string{"commit", "attach", "damage_buffer", "commit"}, srv.Methods("wl_surface"))

	srv.Configure(64, 64)
	sync()
	assert.True(t, state.stale)
	assert.Len(t, srv.Methods("wl_surface"), 4)

	srv.Release(buf.Wl().ID())
	sync()
	assert.False(t, state.stale)
	assert.NoError(t, state.err)
	assert.Equal(t, shm.Presented, buf.State())
	assert.Equal(t, []string{"commit", "attach", "damage_buffer", "commit", "attach", "damage_buffer", "commit"}, srv.Methods("wl_surface"))
	assert.Empty(t, srv.Violations())
}
