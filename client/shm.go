package wl

import (
	"os"
	"slices"
	"sync"

	"deedles.dev/wlframe/internal/set"
	"deedles.dev/wlframe/wire"
	"github.com/pkg/errors"
)

// Shm is a bound wl_shm. It collects the pixel formats that the server
// advertises, which normally arrive in the round trip after binding.
type Shm struct {
	BaseProxy

	// Format, if non-nil, is called for every advertised format after
	// it has been recorded.
	Format func(ShmFormat)

	m       sync.RWMutex
	formats set.Set[ShmFormat]
}

// NewShm returns an unbound shm proxy for use with a Binder.
func NewShm(client *Client) *Shm {
	shm := Shm{formats: set.New[ShmFormat]()}
	shm.Init(client, 0)
	return &shm
}

func (shm *Shm) Interface() string {
	return ShmInterface
}

func (shm *Shm) Dispatch(msg *wire.MessageBuffer) error {
	ev, err := decodeShmEvent(shm.client, shm, msg)
	if err != nil {
		return err
	}

	switch ev := ev.(type) {
	case ShmFormatEvent:
		shm.m.Lock()
		shm.formats.Add(ev.Format)
		shm.m.Unlock()

		if shm.Format != nil {
			shm.Format(ev.Format)
		}
		return nil

	default:
		panic(ev)
	}
}

// HasFormat reports whether the server has advertised f.
func (shm *Shm) HasFormat(f ShmFormat) bool {
	shm.m.RLock()
	defer shm.m.RUnlock()

	return shm.formats.Has(f)
}

// Formats returns the advertised formats in ascending order.
func (shm *Shm) Formats() []ShmFormat {
	shm.m.RLock()
	formats := shm.formats.Clone()
	shm.m.RUnlock()

	s := make([]ShmFormat, 0, len(formats))
	for f := range formats {
		s = append(s, f)
	}
	slices.Sort(s)
	return s
}

// CreatePool creates a pool backed by size bytes of file. The file is
// duplicated, so the caller remains responsible for closing it.
func (shm *Shm) CreatePool(file *os.File, size int32) (*ShmPool, error) {
	if shm.Destroyed() {
		return nil, ErrDestroyed
	}
	if size <= 0 {
		return nil, errors.Errorf("invalid pool size %v", size)
	}

	pool := ShmPool{size: size}
	pool.Init(shm.client, shm.version)
	shm.client.Add(&pool)

	msg := wire.NewMessage(shm, opShmCreatePool)
	msg.Method = "create_pool"
	msg.Args = []any{&pool, file, size}
	msg.WriteObject(&pool)
	msg.WriteFile(file)
	msg.WriteInt(size)
	shm.client.Enqueue(msg)

	return &pool, nil
}
