package wl

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Binder binds proxies to globals chosen from a Registry. Binds are
// sent asynchronously, so a global may be removed by the server before
// the bind reaches it. Confirm detects that.
type Binder struct {
	registry *Registry

	m       sync.Mutex
	pending map[uint32]string
	gone    []string
	cancel  func()
}

func NewBinder(registry *Registry) *Binder {
	b := Binder{
		registry: registry,
		pending:  make(map[uint32]string),
	}
	b.cancel = registry.watchRemove(b.removed)
	return &b
}

func (b *Binder) removed(name uint32) {
	b.m.Lock()
	defer b.m.Unlock()

	iface, ok := b.pending[name]
	if ok {
		b.gone = append(b.gone, iface)
		delete(b.pending, name)
	}
}

// Bind finds the best global for p's interface and binds p to it at
// the highest version that both sides support, but no higher than
// max. It never binds below min.
func (b *Binder) Bind(p Proxy, min, max uint32) (Global, error) {
	g, err := b.registry.Find(p.Interface(), min, max)
	if err != nil {
		return g, err
	}

	version := clampVersion(g.Version, max)
	b.registry.Bind(g.Name, p, version)

	b.m.Lock()
	b.pending[g.Name] = g.Interface
	b.m.Unlock()

	b.registry.client.Log.WithFields(logrus.Fields{
		"interface": g.Interface,
		"name":      g.Name,
		"version":   version,
	}).Debug("bound global")

	return g, nil
}

// Confirm waits for the server to process every bind made so far. It
// fails with ErrGlobalGone if any of the bound globals were removed in
// the meantime. The Binder should not be used after Confirm returns.
func (b *Binder) Confirm(ctx context.Context) error {
	defer b.cancel()

	err := b.registry.client.RoundTrip(ctx)
	if err != nil {
		return err
	}

	b.m.Lock()
	defer b.m.Unlock()

	if len(b.gone) > 0 {
		return errors.Wrapf(ErrGlobalGone, "%v", b.gone)
	}
	return nil
}
