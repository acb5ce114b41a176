package wl

import (
	"cmp"
	"slices"
	"sync"

	"deedles.dev/wlframe/internal/xslices"
	"deedles.dev/wlframe/wire"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
)

// Global is a global object advertised by the server.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// Registry is the client's wl_registry. It mirrors the server's set of
// globals as announcements arrive.
type Registry struct {
	BaseProxy

	// Global and GlobalRemove, if non-nil, are called after the
	// registry's own bookkeeping for the corresponding events.
	Global       func(Global)
	GlobalRemove func(name uint32)

	m        sync.RWMutex
	globals  map[uint32]Global
	watchers []*removeWatcher
}

type removeWatcher struct {
	f func(name uint32)
}

func newRegistry(client *Client) *Registry {
	registry := Registry{globals: make(map[uint32]Global)}
	registry.Init(client, 1)
	return &registry
}

func (r *Registry) Interface() string {
	return RegistryInterface
}

func (r *Registry) Dispatch(msg *wire.MessageBuffer) error {
	ev, err := decodeRegistryEvent(r.client, r, msg)
	if err != nil {
		return err
	}

	switch ev := ev.(type) {
	case RegistryGlobalEvent:
		r.handleGlobal(Global(ev))
		return nil

	case RegistryGlobalRemoveEvent:
		r.handleGlobalRemove(ev.Name)
		return nil

	default:
		panic(ev)
	}
}

// handleGlobal adds g, replacing any global previously announced
// under the same name.
func (r *Registry) handleGlobal(g Global) {
	r.m.Lock()
	r.globals[g.Name] = g
	r.m.Unlock()

	if r.Global != nil {
		r.Global(g)
	}
}

func (r *Registry) handleGlobalRemove(name uint32) {
	r.m.Lock()
	_, ok := r.globals[name]
	delete(r.globals, name)
	watchers := slices.Clone(r.watchers)
	r.m.Unlock()

	if !ok {
		r.client.Log.WithField("name", name).Debug("removal of unknown global")
	}
	for _, w := range watchers {
		w.f(name)
	}
	if r.GlobalRemove != nil {
		r.GlobalRemove(name)
	}
}

// Globals returns a snapshot of the currently advertised globals keyed
// by name.
func (r *Registry) Globals() map[uint32]Global {
	r.m.RLock()
	defer r.m.RUnlock()

	return maps.Clone(r.globals)
}

// Sorted returns the currently advertised globals in name order.
func (r *Registry) Sorted() []Global {
	globals := r.list()
	slices.SortFunc(globals, func(g1, g2 Global) int { return cmp.Compare(g1.Name, g2.Name) })
	return globals
}

func (r *Registry) list() []Global {
	r.m.RLock()
	defer r.m.RUnlock()

	globals := make([]Global, 0, len(r.globals))
	for _, g := range r.globals {
		globals = append(globals, g)
	}
	return globals
}

// Find returns the best global advertising iface for use at a
// version between min and max. Versions above max count as max, and
// among equally good globals the one with the lowest name wins. Find
// fails with ErrNotFound if no global matches and with
// ErrVersionMismatch if the best match is older than min. The returned
// Global carries the advertised version.
func (r *Registry) Find(iface string, min, max uint32) (Global, error) {
	candidates := xslices.Filter(r.list(), func(g Global) bool {
		return g.Interface == iface
	})

	best, ok := xslices.MaxFunc(candidates, func(g1, g2 Global) bool {
		v1, v2 := clampVersion(g1.Version, max), clampVersion(g2.Version, max)
		if v1 != v2 {
			return v1 < v2
		}
		return g1.Name > g2.Name
	})
	if !ok {
		return Global{}, errors.Wrap(ErrNotFound, iface)
	}
	if best.Version < min {
		return best, errors.Wrapf(ErrVersionMismatch, "%v: advertised version %v, need at least %v", iface, best.Version, min)
	}
	return best, nil
}

func clampVersion(v, max uint32) uint32 {
	if max > 0 && v > max {
		return max
	}
	return v
}

// Bind binds the global with the given name to p at version. p is
// registered with the client and its version set.
func (r *Registry) Bind(name uint32, p Proxy, version uint32) {
	p.SetVersion(version)
	r.client.Add(p)

	msg := wire.NewMessage(r, opRegistryBind)
	msg.Method = "bind"
	msg.Args = []any{name, p.Interface(), version, p}
	msg.WriteUint(name)
	msg.WriteNewID(wire.NewID{
		Interface: p.Interface(),
		Version:   version,
		ID:        p.ID(),
	})
	r.client.Enqueue(msg)
}

// watchRemove registers f to be called with the name of every global
// that is removed. The returned function unregisters it.
func (r *Registry) watchRemove(f func(name uint32)) (cancel func()) {
	r.m.Lock()
	defer r.m.Unlock()

	w := &removeWatcher{f: f}
	r.watchers = append(r.watchers, w)
	return func() {
		r.m.Lock()
		defer r.m.Unlock()

		i := slices.Index(r.watchers, w)
		if i >= 0 {
			r.watchers = slices.Delete(r.watchers, i, i+1)
		}
	}
}
