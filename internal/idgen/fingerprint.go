package idgen

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"

	"github.com/cespare/xxhash/v2"
)

var errNoHardwareAddr = errors.New("no network interface with a hardware address")

// HardwareMachineID hashes the sorted hardware addresses of the host's
// network interfaces.
func HardwareMachineID() (uint32, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return 0, fmt.Errorf("list interfaces: %w", err)
	}
	return fingerprint(ifaces)
}

func fingerprint(ifaces []net.Interface) (uint32, error) {
	var addrs []string
	for _, ifc := range ifaces {
		if len(ifc.HardwareAddr) > 0 {
			addrs = append(addrs, ifc.HardwareAddr.String())
		}
	}
	if len(addrs) == 0 {
		return 0, errNoHardwareAddr
	}
	sort.Strings(addrs)

	h := xxhash.New()
	for _, a := range addrs {
		_, _ = h.WriteString(a)
	}
	return uint32(h.Sum64()) & machineMask, nil
}

// RuntimeProcessID uses the OS process id, falling back to a hash of the
// executable name.
func RuntimeProcessID() (uint32, error) {
	if pid := os.Getpid(); pid > 0 {
		return uint32(pid) & processMask, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("resolve executable: %w", err)
	}
	return uint32(xxhash.Sum64String(filepath.Base(exe))) & processMask, nil
}

// FixedID returns a source that always reports id; used for explicitly
// configured machine ids.
func FixedID(id uint32) func() (uint32, error) {
	return func() (uint32, error) { return id, nil }
}
