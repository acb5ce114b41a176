package wl_test

import (
	"context"
	"testing"

	wl "deedles.dev/wlframe/client"
	"deedles.dev/wlframe/internal/wltest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSurfaceDamageBuffer(t *testing.T) {
	tests := []struct {
		name    string
		version uint32
		want    string
	}{
		{name: "damage_buffer", version: 5, want: "damage_buffer"},
		{name: "fallback", version: 3, want: "damage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := wltest.Server{
				Globals: []wltest.Global{{Name: 1, Interface: "wl_compositor", Version: tt.version}},
			}
			c := connect(t, &srv)
			registry := c.Display().GetRegistry()
			require.NoError(t, c.RoundTrip(context.Background()))

			binder := wl.NewBinder(registry)
			compositor := wl.NewCompositor(c)
			_, err := binder.Bind(compositor, 1, wl.CompositorVersion)
			require.NoError(t, err)
			require.NoError(t, binder.Confirm(context.Background()))

			surface, err := compositor.CreateSurface()
			require.NoError(t, err)
			require.NoError(t, surface.DamageBuffer(0, 0, 10, 10))
			require.NoError(t, surface.Commit())
			require.NoError(t, c.RoundTrip(context.Background()))

			assert.Equal(t, []string{tt.want, "commit"}, srv.Methods("wl_surface"))
		})
	}
}

func TestSurfaceDestroyed(t *testing.T) {
	srv := wltest.Server{
		Globals: []wltest.Global{{Name: 1, Interface: "wl_compositor", Version: 5}},
	}
	c := connect(t, &srv)
	registry := c.Display().GetRegistry()
	require.NoError(t, c.RoundTrip(context.Background()))

	compositor := wl.NewCompositor(c)
	registry.Bind(1, compositor, 5)

	surface, err := compositor.CreateSurface()
	require.NoError(t, err)
	require.NoError(t, surface.Destroy())
	require.NoError(t, surface.Destroy())

	assert.ErrorIs(t, surface.Commit(), wl.ErrDestroyed)
	assert.ErrorIs(t, surface.Attach(nil, 0, 0), wl.ErrDestroyed)

	require.NoError(t, c.RoundTrip(context.Background()))
	assert.Equal(t, []string{"destroy"}, srv.Methods("wl_surface"))
	assert.Empty(t, srv.Objects("wl_surface"))
	assert.True(t, surface.Deleted())
}
