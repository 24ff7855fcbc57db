package wlclient

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// maxKeymapSize bounds what a compositor can make us map
const maxKeymapSize = 16 << 20

// readKeymap copies the keymap shared through fd and closes fd
func readKeymap(fd int, size uint32) ([]byte, error) {
	defer unix.Close(fd)

	if size == 0 || size > maxKeymapSize {
		return nil, fmt.Errorf("keymap size %d out of range", size)
	}
	mem, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("failed to map keymap: %w", err)
	}
	defer unix.Munmap(mem)

	data := make([]byte, len(mem))
	copy(data, mem)
	return data, nil
}
