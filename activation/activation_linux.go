//go:build linux

package activation

import (
	"fmt"
	"net"
	"os"
	"strconv"
)

// listenFDsStart is the first systemd-activated file descriptor number per
// the sd_listen_fds(3) convention (0, 1, 2 are stdio).
const listenFDsStart = 3

// Systemd adopts the descriptors systemd passes via LISTEN_FDS/LISTEN_PID
// as TCP listeners, per the sd_listen_fds(3) socket activation contract.
type Systemd struct{}

// Listeners implements Source by adopting every LISTEN_FDS descriptor as a
// net.Listener without re-binding.
func (Systemd) Listeners() ([]net.Listener, error) {
	nStr := os.Getenv("LISTEN_FDS")
	if nStr == "" {
		return nil, fmt.Errorf("activation: LISTEN_FDS not set")
	}
	n, err := strconv.Atoi(nStr)
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("activation: invalid LISTEN_FDS %q", nStr)
	}

	if pidStr := os.Getenv("LISTEN_PID"); pidStr != "" {
		pid, err := strconv.Atoi(pidStr)
		if err != nil || pid != os.Getpid() {
			return nil, fmt.Errorf("activation: LISTEN_PID %q does not match this process", pidStr)
		}
	}

	listeners := make([]net.Listener, 0, n)
	for i := 0; i < n; i++ {
		fd := uintptr(listenFDsStart + i)
		f := os.NewFile(fd, fmt.Sprintf("listen-fd-%d", fd))
		ln, err := net.FileListener(f)
		f.Close()
		if err != nil {
			for _, opened := range listeners {
				opened.Close()
			}
			return nil, fmt.Errorf("activation: adopt fd %d: %w", fd, err)
		}
		listeners = append(listeners, ln)
	}
	return listeners, nil
}

// Launchd is unavailable on Linux; --launchd is macOS-only.
type Launchd struct {
	Name string
}

func (l Launchd) Listeners() ([]net.Listener, error) {
	return nil, fmt.Errorf("activation: launchd socket %q: launchd activation is macOS-only", l.Name)
}
