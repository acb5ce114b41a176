package wl

import (
	"deedles.dev/wlframe/wire"
	"github.com/pkg/errors"
)

// ShmPool is a wl_shm_pool.
type ShmPool struct {
	BaseProxy
	size int32
}

func (pool *ShmPool) Interface() string {
	return ShmPoolInterface
}

func (pool *ShmPool) Dispatch(msg *wire.MessageBuffer) error {
	return UnknownEvent(pool, msg)
}

// Size is the size of the pool as last told to the server.
func (pool *ShmPool) Size() int32 {
	return pool.size
}

// CreateBuffer creates a buffer from a region of the pool. Bounds are
// the caller's responsibility.
func (pool *ShmPool) CreateBuffer(offset, width, height, stride int32, format ShmFormat) (*Buffer, error) {
	if pool.Destroyed() {
		return nil, ErrDestroyed
	}

	var buf Buffer
	buf.Init(pool.client, pool.version)
	pool.client.Add(&buf)

	msg := wire.NewMessage(pool, opShmPoolCreateBuffer)
	msg.Method = "create_buffer"
	msg.Args = []any{&buf, offset, width, height, stride, format}
	msg.WriteObject(&buf)
	msg.WriteInt(offset)
	msg.WriteInt(width)
	msg.WriteInt(height)
	msg.WriteInt(stride)
	msg.WriteUint(uint32(format))
	pool.client.Enqueue(msg)

	return &buf, nil
}

// Resize grows the pool. Pools can not shrink.
func (pool *ShmPool) Resize(size int32) error {
	if pool.Destroyed() {
		return ErrDestroyed
	}
	if size < pool.size {
		return errors.Errorf("shrink pool from %v to %v", pool.size, size)
	}

	msg := wire.NewMessage(pool, opShmPoolResize)
	msg.Method = "resize"
	msg.Args = []any{size}
	msg.WriteInt(size)
	pool.client.Enqueue(msg)

	pool.size = size
	return nil
}

// Destroy destroys the pool. Buffers created from it remain valid.
func (pool *ShmPool) Destroy() error {
	if !pool.MarkDestroyed() {
		return nil
	}

	msg := wire.NewMessage(pool, opShmPoolDestroy)
	msg.Method = "destroy"
	pool.client.Enqueue(msg)
	return nil
}
