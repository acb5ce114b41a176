package wl

import (
	"sync"

	"deedles.dev/wlframe/wire"
	"github.com/pkg/errors"
)

// Role is an object that gives a surface its meaning, such as an
// xdg_surface. A role is destroyed along with its surface.
type Role interface {
	Proxy
	Destroy() error
}

// Surface is a wl_surface.
type Surface struct {
	BaseProxy

	Enter func(output uint32)
	Leave func(output uint32)

	compositor *Compositor

	m    sync.Mutex
	role Role
}

func (s *Surface) Interface() string {
	return SurfaceInterface
}

func (s *Surface) Dispatch(msg *wire.MessageBuffer) error {
	ev, err := decodeSurfaceEvent(s.client, s, msg)
	if err != nil {
		return err
	}

	switch ev := ev.(type) {
	case SurfaceEnterEvent:
		if s.Enter != nil {
			s.Enter(ev.Output)
		}
		return nil

	case SurfaceLeaveEvent:
		if s.Leave != nil {
			s.Leave(ev.Output)
		}
		return nil

	default:
		panic(ev)
	}
}

// SetRole records the role object of the surface. A surface may only
// be given a role once.
func (s *Surface) SetRole(role Role) error {
	if s.Destroyed() {
		return ErrDestroyed
	}

	s.m.Lock()
	defer s.m.Unlock()

	if s.role != nil {
		return errors.Errorf("%v@%v already has role %v", s.Interface(), s.id, s.role.Interface())
	}
	s.role = role
	return nil
}

// Role returns the surface's role object, or nil if it has none.
func (s *Surface) Role() Role {
	s.m.Lock()
	defer s.m.Unlock()

	return s.role
}

func (s *Surface) request(op uint16, method string, args ...any) *wire.MessageBuilder {
	msg := wire.NewMessage(s, op)
	msg.Method = method
	msg.Args = args
	return msg
}

// Attach sets buf as the pending content of the surface. A nil buf
// removes the surface's content on the next commit.
func (s *Surface) Attach(buf *Buffer, x, y int32) error {
	if s.Destroyed() {
		return ErrDestroyed
	}

	msg := s.request(opSurfaceAttach, "attach", buf, x, y)
	if buf != nil {
		msg.WriteObject(buf)
	} else {
		msg.WriteUint(0)
	}
	msg.WriteInt(x)
	msg.WriteInt(y)
	s.client.Enqueue(msg)
	return nil
}

// Damage marks a region of the surface, in surface coordinates, as
// changed.
func (s *Surface) Damage(x, y, width, height int32) error {
	if s.Destroyed() {
		return ErrDestroyed
	}

	msg := s.request(opSurfaceDamage, "damage", x, y, width, height)
	msg.WriteInt(x)
	msg.WriteInt(y)
	msg.WriteInt(width)
	msg.WriteInt(height)
	s.client.Enqueue(msg)
	return nil
}

// DamageBuffer marks a region of the surface, in buffer coordinates,
// as changed. Surfaces older than version 4 fall back to Damage.
func (s *Surface) DamageBuffer(x, y, width, height int32) error {
	if s.version < surfaceDamageBufferSince {
		return s.Damage(x, y, width, height)
	}
	if s.Destroyed() {
		return ErrDestroyed
	}

	msg := s.request(opSurfaceDamageBuffer, "damage_buffer", x, y, width, height)
	msg.WriteInt(x)
	msg.WriteInt(y)
	msg.WriteInt(width)
	msg.WriteInt(height)
	s.client.Enqueue(msg)
	return nil
}

// Commit applies the surface's pending state.
func (s *Surface) Commit() error {
	if s.Destroyed() {
		return ErrDestroyed
	}

	s.client.Enqueue(s.request(opSurfaceCommit, "commit"))
	return nil
}

// Destroy destroys the surface's role, if any, and then the surface.
func (s *Surface) Destroy() error {
	if s.Destroyed() {
		return nil
	}

	role := s.Role()
	if role != nil {
		err := role.Destroy()
		if err != nil {
			return errors.Wrap(err, "destroy role")
		}
	}

	if !s.MarkDestroyed() {
		return nil
	}
	s.client.Enqueue(s.request(opSurfaceDestroy, "destroy"))
	return nil
}
