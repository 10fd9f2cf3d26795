package membership

import (
	"fmt"
	"net"

	"rumorcore/internal/logging"
)

// AllocatePort finds a free TCP port in [basePort, basePort+maxTries),
// binding and immediately releasing each candidate until one succeeds.
// This is a simplified adaptation of the teacher's
// discovery/port_allocator.go: the teacher additionally ran a
// cross-process HTTP "claim" handshake to detect two nodes racing for
// the same port on the same host, which this node doesn't need — each
// node here owns its bind address from static configuration or
// membership discovery, not from racing siblings on shared ports.
func AllocatePort(basePort, maxTries int) (int, error) {
	for port := basePort; port < basePort+maxTries; port++ {
		l, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			logging.Debugw("port unavailable, trying next", "port", port)
			continue
		}
		l.Close()
		return port, nil
	}
	return 0, fmt.Errorf("membership: no free port found in [%d, %d)", basePort, basePort+maxTries)
}
