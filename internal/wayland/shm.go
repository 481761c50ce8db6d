package wayland

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// ShmBuffer is a memfd-backed pixel buffer shared with the
// compositor. Pixels are 32-bit little-endian, which puts the bytes in
// BGRA order in memory.
type ShmBuffer struct {
	Width  uint32
	Height uint32
	Stride uint32

	fd       int
	data     []byte
	poolID   uint32
	bufferID uint32
}

// NewMemoryBuffer allocates and maps the backing memory for a buffer.
// The protocol objects are attached separately by the session.
func NewMemoryBuffer(width, height, stride uint32) (*ShmBuffer, error) {
	size := int(stride) * int(height)
	if size <= 0 {
		return nil, fmt.Errorf("invalid buffer size %dx%d stride %d", width, height, stride)
	}

	fd, err := unix.MemfdCreate("wayswitch-shm", unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("memfd_create failed: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("ftruncate failed: %w", err)
	}

	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("mmap failed: %w", err)
	}

	return &ShmBuffer{
		Width:  width,
		Height: height,
		Stride: stride,
		fd:     fd,
		data:   data,
	}, nil
}

// Pixels returns the mapped pixel memory.
func (b *ShmBuffer) Pixels() []byte {
	return b.data
}

// Release unmaps and closes the backing memory. Protocol-side
// destruction is the session's job.
func (b *ShmBuffer) Release() {
	if b.data != nil {
		unix.Munmap(b.data)
		b.data = nil
	}
	if b.fd >= 0 {
		unix.Close(b.fd)
		b.fd = -1
	}
}
