//go:build !linux && !darwin

package activation

import (
	"fmt"
	"net"
)

// Systemd is unavailable outside Linux builds.
type Systemd struct{}

func (Systemd) Listeners() ([]net.Listener, error) {
	return nil, fmt.Errorf("activation: systemd activation is not supported on this platform")
}

// Launchd is unavailable outside Darwin builds.
type Launchd struct {
	Name string
}

func (l Launchd) Listeners() ([]net.Listener, error) {
	return nil, fmt.Errorf("activation: launchd activation is not supported on this platform")
}
