//go:build !darwin && !linux

package socket

import "syscall"

func reuseControl(network, address string, c syscall.RawConn) error {
	return nil
}
