package wltest

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"deedles.dev/wlframe/wire"
)

// Global is a global advertised by a Server.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// Request is a request received by a Server.
type Request struct {
	Object    uint32
	Interface string
	Method    string
	Args      []any
}

func (r Request) String() string {
	return fmt.Sprintf("%v@%v.%v%v", r.Interface, r.Object, r.Method, r.Args)
}

type request struct {
	name string
	args string
}

// Argument kinds: u uint, i int, s string, n new_id, N untyped new_id,
// o object, h file descriptor, a array.
var requests = map[string][]request{
	"wl_display":    {{"sync", "n"}, {"get_registry", "n"}},
	"wl_registry":   {{"bind", "uN"}},
	"wl_compositor": {{"create_surface", "n"}, {"create_region", "n"}},
	"wl_surface": {
		{"destroy", ""}, {"attach", "oii"}, {"damage", "iiii"}, {"frame", "n"},
		{"set_opaque_region", "o"}, {"set_input_region", "o"}, {"commit", ""},
		{"set_buffer_transform", "i"}, {"set_buffer_scale", "i"},
		{"damage_buffer", "iiii"}, {"offset", "ii"},
	},
	"wl_shm":      {{"create_pool", "nhi"}, {"release", ""}},
	"wl_shm_pool": {{"create_buffer", "niiiiu"}, {"destroy", ""}, {"resize", "i"}},
	"wl_buffer":   {{"destroy", ""}},
	"xdg_wm_base": {{"destroy", ""}, {"create_positioner", "n"}, {"get_xdg_surface", "no"}, {"pong", "u"}},
	"xdg_surface": {
		{"destroy", ""}, {"get_toplevel", "n"}, {"get_popup", "noo"},
		{"set_window_geometry", "iiii"}, {"ack_configure", "u"},
	},
	"xdg_toplevel": {
		{"destroy", ""}, {"set_parent", "o"}, {"set_title", "s"}, {"set_app_id", "s"},
		{"show_window_menu", "ouii"}, {"move", "ou"}, {"resize", "ouu"},
		{"set_max_size", "ii"}, {"set_min_size", "ii"}, {"set_maximized", ""},
		{"unset_maximized", ""}, {"set_fullscreen", "o"}, {"unset_fullscreen", ""},
		{"set_minimized", ""},
	},
}

type object struct {
	id    uint32
	iface string
}

func (obj *object) ID() uint32                         { return obj.id }
func (obj *object) SetID(id uint32)                    { obj.id = id }
func (obj *object) Interface() string                  { return obj.iface }
func (obj *object) Dispatch(*wire.MessageBuffer) error { return nil }
func (obj *object) Delete()                            {}

type role struct {
	xdgSurface uint32
	toplevel   uint32
	configured bool
	pending    []uint32
	acked      bool
}

// Server is a stub compositor. It answers the requests needed to bind
// globals, create shm buffers and set up xdg toplevels, and records
// every request that it receives. Problems that a real compositor
// would treat as fatal are recorded as violations instead.
type Server struct {
	// Globals and Formats are advertised to clients. They must be set
	// before Start.
	Globals []Global
	Formats []uint32

	// Width and Height are sent in toplevel configure events.
	Width, Height int32

	// Delay is waited out before sending each event.
	Delay time.Duration

	t    wire.Transport
	done chan struct{}

	m          sync.Mutex
	objects    map[uint32]string
	requests   []Request
	violations []string
	roles      map[uint32]*role
	serial     uint32
	mute       bool
}

// Start serves t in the background until it is closed.
func (s *Server) Start(t wire.Transport) {
	s.t = t
	s.done = make(chan struct{})
	s.objects = map[uint32]string{1: "wl_display"}
	s.roles = make(map[uint32]*role)

	go s.serve()
}

// Done is closed when the server stops.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

func (s *Server) serve() {
	defer close(s.done)

	for {
		msg, err := s.t.ReadMessage()
		if err != nil {
			return
		}

		s.m.Lock()
		s.handle(wire.NewMessageBuffer(msg))
		s.m.Unlock()
	}
}

func (s *Server) violation(format string, args ...any) {
	s.violations = append(s.violations, fmt.Sprintf(format, args...))
}

func (s *Server) handle(msg *wire.MessageBuffer) {
	defer msg.Close()

	iface, ok := s.objects[msg.Sender()]
	if !ok {
		s.violation("request %v from unknown object %v", msg.Op(), msg.Sender())
		return
	}
	reqs := requests[iface]
	if int(msg.Op()) >= len(reqs) {
		s.violation("unknown request %v on %v@%v", msg.Op(), iface, msg.Sender())
		return
	}

	def := reqs[msg.Op()]
	req := Request{
		Object:    msg.Sender(),
		Interface: iface,
		Method:    def.name,
		Args:      make([]any, 0, len(def.args)),
	}
	for _, kind := range def.args {
		switch kind {
		case 'u', 'n', 'o':
			req.Args = append(req.Args, msg.ReadUint())
		case 'i':
			req.Args = append(req.Args, msg.ReadInt())
		case 's':
			req.Args = append(req.Args, msg.ReadString())
		case 'a':
			req.Args = append(req.Args, msg.ReadArray())
		case 'N':
			req.Args = append(req.Args, msg.ReadNewID())
		case 'h':
			f := msg.ReadFile()
			if f != nil {
				f.Close()
			}
			req.Args = append(req.Args, "fd")
		}
	}
	if err := msg.Err(); err != nil {
		s.violation("decode %v.%v: %v", iface, def.name, err)
		return
	}

	s.requests = append(s.requests, req)
	s.apply(req)
}

func (s *Server) apply(req Request) {
	arg := func(i int) uint32 { return req.Args[i].(uint32) }

	switch req.Interface + "." + req.Method {
	case "wl_display.sync":
		if s.mute {
			return
		}
		s.event(arg(0), "wl_callback", 0, s.nextSerial())
		s.event(1, "wl_display", 1, arg(0))

	case "wl_display.get_registry":
		s.objects[arg(0)] = "wl_registry"
		for _, g := range s.Globals {
			s.event(arg(0), "wl_registry", 0, g.Name, g.Interface, g.Version)
		}

	case "wl_registry.bind":
		name, id := arg(0), req.Args[1].(wire.NewID)
		i := slices.IndexFunc(s.Globals, func(g Global) bool { return g.Name == name })
		switch {
		case i < 0:
			s.violation("bind to unknown global %v", name)
		case s.Globals[i].Interface != id.Interface:
			s.violation("bind %v as %v", s.Globals[i].Interface, id.Interface)
		case id.Version > s.Globals[i].Version || id.Version == 0:
			s.violation("bind %v at version %v", id.Interface, id.Version)
		}

		s.objects[id.ID] = id.Interface
		if id.Interface == "wl_shm" {
			for _, f := range s.Formats {
				s.event(id.ID, "wl_shm", 0, f)
			}
		}

	case "wl_compositor.create_surface":
		s.objects[arg(0)] = "wl_surface"

	case "wl_shm.create_pool":
		s.objects[arg(0)] = "wl_shm_pool"

	case "wl_shm_pool.create_buffer":
		s.objects[arg(0)] = "wl_buffer"

	case "xdg_wm_base.get_xdg_surface":
		if _, ok := s.roles[arg(1)]; ok {
			s.violation("wl_surface@%v already has a role", arg(1))
		}
		s.objects[arg(0)] = "xdg_surface"
		s.roles[arg(1)] = &role{xdgSurface: arg(0)}

	case "xdg_surface.get_toplevel":
		s.objects[arg(0)] = "xdg_toplevel"
		if r := s.roleOf(req.Object); r != nil {
			r.toplevel = arg(0)
		}

	case "xdg_surface.ack_configure":
		r := s.roleOf(req.Object)
		if r == nil {
			s.violation("ack_configure on unknown xdg_surface@%v", req.Object)
			return
		}
		i := slices.Index(r.pending, arg(0))
		if i < 0 {
			s.violation("ack of unknown configure %v", arg(0))
			return
		}
		r.pending = r.pending[i+1:]
		r.acked = true

	case "wl_surface.attach":
		if r := s.roles[req.Object]; r != nil && !r.acked && arg(0) != 0 {
			s.violation("buffer attached to unconfigured wl_surface@%v", req.Object)
		}

	case "wl_surface.commit":
		if r := s.roles[req.Object]; r != nil && !r.configured {
			r.configured = true
			s.configure(r)
		}
	}

	if req.Method == "destroy" {
		delete(s.objects, req.Object)
		delete(s.roles, req.Object)
		s.event(1, "wl_display", 1, req.Object)
	}
}

func (s *Server) roleOf(xdgSurface uint32) *role {
	for _, r := range s.roles {
		if r.xdgSurface == xdgSurface {
			return r
		}
	}
	return nil
}

func (s *Server) nextSerial() uint32 {
	s.serial++
	return s.serial
}

func (s *Server) configure(r *role) {
	if r.toplevel != 0 {
		s.event(r.toplevel, "xdg_toplevel", 0, s.Width, s.Height, []byte{})
	}
	serial := s.nextSerial()
	r.pending = append(r.pending, serial)
	s.event(r.xdgSurface, "xdg_surface", 0, serial)
}

func (s *Server) event(sender uint32, iface string, op uint16, args ...any) {
	msg := wire.NewMessage(&object{id: sender, iface: iface}, op)
	for _, arg := range args {
		switch arg := arg.(type) {
		case uint32:
			msg.WriteUint(arg)
		case int32:
			msg.WriteInt(arg)
		case string:
			msg.WriteString(arg)
		case []byte:
			msg.WriteArray(arg)
		default:
			panic(fmt.Errorf("unsupported argument type %T", arg))
		}
	}

	m, err := msg.Build()
	if err != nil {
		panic(err)
	}

	if s.Delay > 0 {
		time.Sleep(s.Delay)
	}
	s.t.WriteMessage(m)
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.m.Lock()
	defer s.m.Unlock()

	return slices.Clone(s.requests)
}

// Methods returns the names of the requests received so far on
// objects of the given interface, in order.
func (s *Server) Methods(iface string) []string {
	s.m.Lock()
	defer s.m.Unlock()

	var methods []string
	for _, req := range s.requests {
		if req.Interface == iface {
			methods = append(methods, req.Method)
		}
	}
	return methods
}

// Violations returns the protocol errors that the client has made.
func (s *Server) Violations() []string {
	s.m.Lock()
	defer s.m.Unlock()

	return slices.Clone(s.violations)
}

// Objects returns the IDs of the live objects of the given interface
// in ascending order.
func (s *Server) Objects(iface string) []uint32 {
	s.m.Lock()
	defer s.m.Unlock()

	var ids []uint32
	for id, i := range s.objects {
		if i == iface {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Mute stops the server from answering sync requests.
func (s *Server) Mute(mute bool) {
	s.m.Lock()
	defer s.m.Unlock()

	s.mute = mute
}

// AddGlobal advertises a new global to every registry.
func (s *Server) AddGlobal(g Global) {
	s.m.Lock()
	defer s.m.Unlock()

	s.Globals = append(s.Globals, g)
	s.broadcast("wl_registry", 0, g.Name, g.Interface, g.Version)
}

// RemoveGlobal withdraws a global from every registry.
func (s *Server) RemoveGlobal(name uint32) {
	s.m.Lock()
	defer s.m.Unlock()

	s.Globals = slices.DeleteFunc(s.Globals, func(g Global) bool { return g.Name == name })
	s.broadcast("wl_registry", 1, name)
}

// Ping pings the client through every xdg_wm_base.
func (s *Server) Ping(serial uint32) {
	s.m.Lock()
	defer s.m.Unlock()

	s.broadcast("xdg_wm_base", 0, serial)
}

// Close asks every toplevel to close.
func (s *Server) Close() {
	s.m.Lock()
	defer s.m.Unlock()

	s.broadcast("xdg_toplevel", 1)
}

// Configure sends a new configuration to every toplevel.
func (s *Server) Configure(width, height int32) {
	s.m.Lock()
	defer s.m.Unlock()

	s.Width, s.Height = width, height
	for _, r := range s.roles {
		if r.configured {
			s.configure(r)
		}
	}
}

// Release releases a buffer.
func (s *Server) Release(buffer uint32) {
	s.m.Lock()
	defer s.m.Unlock()

	s.event(buffer, "wl_buffer", 0)
}

// Send sends an event with raw argument data.
func (s *Server) Send(sender uint32, op uint16, data []byte) {
	s.m.Lock()
	defer s.m.Unlock()

	s.t.WriteMessage(&wire.Message{Sender: sender, Op: op, Data: data})
}

func (s *Server) broadcast(iface string, op uint16, args ...any) {
	ids := make([]uint32, 0)
	for id, i := range s.objects {
		if i == iface {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	for _, id := range ids {
		s.event(id, iface, op, args...)
	}
}
