//go:build windows

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// notifySignals registers for shutdown on Windows. The runtime delivers
// os.Interrupt for the Ctrl-C and Ctrl-Break console control events and
// syscall.SIGTERM for Ctrl-Close, Ctrl-Logoff and Ctrl-Shutdown.
func notifySignals(ch chan<- os.Signal) {
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
}
