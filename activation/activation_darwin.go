//go:build darwin

package activation

import (
	"fmt"
	"net"
)

// Launchd names a launchd socket entry whose descriptors become listening
// sockets. The real launchd_activate_socket(3) binding isn't vendored
// here; this stub reports it is unavailable so cmd/proxyd can fail the
// --launchd flag cleanly rather than silently no-op.
type Launchd struct {
	Name string
}

// Listeners always fails: the launchd C binding is not vendored here.
func (l Launchd) Listeners() ([]net.Listener, error) {
	return nil, fmt.Errorf("activation: launchd socket %q: launchd activation is not supported by this build", l.Name)
}

// Systemd is unavailable on macOS; --systemd is Linux-only.
type Systemd struct{}

func (Systemd) Listeners() ([]net.Listener, error) {
	return nil, fmt.Errorf("activation: systemd activation is Linux-only")
}
