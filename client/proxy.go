package wl

import (
	"sync/atomic"

	"deedles.dev/wlframe/wire"
)

// Proxy is a client-side handle for a server-side object.
type Proxy interface {
	wire.Object

	// Version is the protocol version that the object was created
	// with.
	Version() uint32
	SetVersion(version uint32)
}

// BaseProxy implements the bookkeeping shared by every Proxy. It is
// meant to be embedded.
type BaseProxy struct {
	client    *Client
	id        uint32
	version   uint32
	destroyed atomic.Bool
	deleted   atomic.Bool
}

// Init associates the proxy with a client. Objects created by other
// objects inherit their parent's version.
func (p *BaseProxy) Init(client *Client, version uint32) {
	p.client = client
	p.version = version
}

func (p *BaseProxy) Client() *Client {
	return p.client
}

func (p *BaseProxy) ID() uint32 {
	return p.id
}

func (p *BaseProxy) SetID(id uint32) {
	p.id = id
}

func (p *BaseProxy) Version() uint32 {
	return p.version
}

func (p *BaseProxy) SetVersion(version uint32) {
	p.version = version
}

// Delete records that the server has released the object's ID.
func (p *BaseProxy) Delete() {
	p.deleted.Store(true)
	p.destroyed.Store(true)
}

// Deleted reports whether the server has released the object's ID.
func (p *BaseProxy) Deleted() bool {
	return p.deleted.Load()
}

// Destroyed reports whether the object has been destroyed. No further
// requests may be made on a destroyed object.
func (p *BaseProxy) Destroyed() bool {
	return p.destroyed.Load()
}

// MarkDestroyed marks the object as destroyed, returning false if it
// already was.
func (p *BaseProxy) MarkDestroyed() bool {
	return p.destroyed.CompareAndSwap(false, true)
}
