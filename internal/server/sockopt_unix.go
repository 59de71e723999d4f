//go:build linux || freebsd || openbsd || darwin || netbsd || dragonfly

package server

import (
	"golang.org/x/sys/unix"
)

// recvBufferSize is the UDP receive buffer requested from the kernel.
// Default socket buffers are too small once player count and tick rate
// push packet volume past a few hundred datagrams per second; this
// mirrors a busy game server sizing SO_RCVBUF/SO_SNDBUF explicitly
// instead of living with the OS default.
const recvBufferSize = 4 << 20

// tuneSocketBuffers raises SO_RCVBUF/SO_SNDBUF on the bound UDP socket
// via its raw file descriptor. Errors are logged, not fatal: a kernel
// that refuses the request still leaves the socket usable at its
// default buffer size.
func (s *Server) tuneSocketBuffers() {
	raw, err := s.socket.SyscallConn()
	if err != nil {
		s.log.WithField("error", err).Debug("socket has no raw conn, skipping buffer tuning")
		return
	}

	var sockErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		if err := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, recvBufferSize); err != nil {
			sockErr = err
			return
		}
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, recvBufferSize)
	})
	if ctrlErr != nil {
		s.log.WithField("error", ctrlErr).Debug("could not reach raw socket fd")
		return
	}
	if sockErr != nil {
		s.log.WithField("error", sockErr).Debug("setsockopt failed, using kernel default buffer size")
	}
}
