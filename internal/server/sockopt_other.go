//go:build !(linux || freebsd || openbsd || darwin || netbsd || dragonfly)

package server

// tuneSocketBuffers is a no-op on platforms without unix socket options.
func (s *Server) tuneSocketBuffers() {}
