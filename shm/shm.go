// Package shm provides shared memory pixel buffers for Wayland
// surfaces.
package shm

import (
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Create returns a new anonymous, memory-backed file. The file has no
// name in the filesystem and disappears once every descriptor for it
// is closed.
func Create() (*os.File, error) {
	name := "wlframe-shm-" + uuid.NewString()

	fd, err := unix.MemfdCreate(name, unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
	if err != nil {
		return nil, errors.Wrap(err, "memfd_create")
	}

	return os.NewFile(uintptr(fd), name), nil
}

// Mmap is a memory-mapped region.
type Mmap []byte

// Map maps the first size bytes of file into memory, shared with any
// other process that maps it.
func Map(file *os.File, size int, prot int) (mmap Mmap, err error) {
	sc, err := file.SyscallConn()
	if err != nil {
		return nil, err
	}

	cerr := sc.Control(func(fd uintptr) {
		m, merr := unix.Mmap(int(fd), 0, size, prot, unix.MAP_SHARED)
		mmap, err = Mmap(m), merr
	})
	if cerr != nil {
		return nil, cerr
	}

	return mmap, errors.Wrap(err, "mmap")
}

func (mmap Mmap) Unmap() error {
	if mmap == nil {
		return nil
	}
	return unix.Munmap(mmap)
}
