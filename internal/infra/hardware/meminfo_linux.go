//go:build linux

package hardware

import "golang.org/x/sys/unix"

// readMemory reports total and available physical memory in bytes.
func readMemory() (total, available uint64, ok bool) {
	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err != nil {
		return 0, 0, false
	}
	unit := uint64(si.Unit)
	if unit == 0 {
		unit = 1
	}
	total = uint64(si.Totalram) * unit
	// Buffers are reclaimable, so count them as available.
	available = (uint64(si.Freeram) + uint64(si.Bufferram)) * unit
	return total, available, true
}
