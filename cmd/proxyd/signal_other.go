//go:build !windows && !unix

package main

import (
	"os"
	"os/signal"
)

// notifySignals registers the portable Ctrl-C equivalent for platforms that
// are neither Unix nor Windows.
func notifySignals(ch chan<- os.Signal) {
	signal.Notify(ch, os.Interrupt)
}
