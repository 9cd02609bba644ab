//go:build darwin || linux

package socket

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// reuseControl lets several receivers on one host bind the same port, so
// each of them gets a copy of every multicast or broadcast datagram.
func reuseControl(network, address string, c syscall.RawConn) error {
	var opErr error
	err := c.Control(func(fd uintptr) {
		opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
		if opErr != nil {
			return
		}
		opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	})
	if err != nil {
		return err
	}
	return opErr
}
