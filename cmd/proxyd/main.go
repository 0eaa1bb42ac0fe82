// Command proxyd is the process entry point: flag parsing, listener setup
// (direct binds or socket activation), and shutdown orchestration, using
// plain `flag` with no framework, generalized to multiple repeatable
// listen addresses raced via golang.org/x/sync/errgroup against a
// signal-driven shutdown context.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/33TU/proxyd/activation"
	"github.com/33TU/proxyd/dialer"
	"github.com/33TU/proxyd/internal/logging"
	"github.com/33TU/proxyd/provider"
)

// logLevelEnvVar is the single recognized environment variable: a
// log-level filter, default "info".
const logLevelEnvVar = "PROXYD_LOG_LEVEL"

// maxConnsPerListener bounds concurrent connections per listener via
// netutil.LimitListener, so a misbehaving client population cannot
// exhaust file descriptors.
const maxConnsPerListener = 4096

// listenAddrs implements flag.Value for a repeatable -l/--listen-stream flag.
type listenAddrs []string

func (l *listenAddrs) String() string { return fmt.Sprint([]string(*l)) }

func (l *listenAddrs) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	os.Exit(run())
}

func run() int {
	log := logging.New(logLevelEnvVar)

	var (
		providerName string
		listen       listenAddrs
		bindTo       string
		launchdName  string
		useSystemd   bool
	)

	flag.StringVar(&providerName, "provider", "", "provider to run: http or socks")
	flag.StringVar(&providerName, "p", "", "shorthand for -provider")
	flag.Var(&listen, "listen-stream", "address to bind and listen on (repeatable)")
	flag.Var(&listen, "l", "shorthand for -listen-stream")
	flag.StringVar(&bindTo, "bind-to", "", "source address for outbound connects")
	flag.StringVar(&bindTo, "b", "", "shorthand for -bind-to")
	flag.StringVar(&launchdName, "launchd", "", "launchd socket name (macOS only)")
	flag.BoolVar(&useSystemd, "systemd", false, "adopt LISTEN_FDS sockets from systemd (Linux only)")
	flag.Parse()

	if providerName == "" {
		log.Error().Msg("missing required -provider flag")
		return 2
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var d *dialer.Dialer
	if bindTo != "" {
		bound, err := dialer.NewWithBind(ctx, bindTo)
		if err != nil {
			log.Error().Err(err).Msg("resolve bind-to address")
			return 1
		}
		d = bound
	} else {
		d = dialer.New()
	}

	p, err := provider.New(providerName, d)
	if err != nil {
		log.Error().Err(err).Msg("configure provider")
		return 2
	}

	listeners, err := acquireListeners(listen, launchdName, useSystemd)
	if err != nil {
		log.Error().Err(err).Msg("acquire listeners")
		return 1
	}
	if len(listeners) == 0 {
		log.Error().Msg("no listeners configured: pass -listen-stream, -launchd or -systemd")
		return 2
	}
	for i, ln := range listeners {
		listeners[i] = netutil.LimitListener(ln, maxConnsPerListener)
	}

	sigCh := make(chan os.Signal, 1)
	notifySignals(sigCh)

	g, gctx := errgroup.WithContext(ctx)
	for _, ln := range listeners {
		ln := ln
		log.Info().Str("addr", ln.Addr().String()).Str("provider", providerName).Msg("listening")
		g.Go(func() error {
			return acceptLoop(gctx, ln, p, log)
		})
	}

	g.Go(func() error {
		select {
		case sig := <-sigCh:
			log.Info().Str("signal", sig.String()).Msg("shutting down")
			cancel()
			for _, ln := range listeners {
				ln.Close()
			}
			return nil
		case <-gctx.Done():
			return nil
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Error().Err(err).Msg("fatal listener error")
		return 1
	}
	return 0
}

// acquireListeners resolves the configured listen addresses (deduplicated)
// or, failing that, an activation source. At most one of explicit
// addresses, launchd, or systemd applies.
func acquireListeners(addrs []string, launchdName string, useSystemd bool) ([]net.Listener, error) {
	switch {
	case len(addrs) > 0:
		return listenAll(dedup(addrs))
	case launchdName != "":
		return (activation.Launchd{Name: launchdName}).Listeners()
	case useSystemd:
		return (activation.Systemd{}).Listeners()
	default:
		return nil, nil
	}
}

func dedup(addrs []string) []string {
	seen := make(map[string]struct{}, len(addrs))
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

func listenAll(addrs []string) ([]net.Listener, error) {
	listeners := make([]net.Listener, 0, len(addrs))
	for _, addr := range addrs {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			for _, opened := range listeners {
				opened.Close()
			}
			return nil, fmt.Errorf("listen on %q: %w", addr, err)
		}
		listeners = append(listeners, ln)
	}
	return listeners, nil
}

func acceptLoop(ctx context.Context, ln net.Listener, p provider.Provider, log zerolog.Logger) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept on %v: %w", ln.Addr(), err)
		}
		go handleConn(ctx, conn, p, log)
	}
}

func handleConn(ctx context.Context, conn net.Conn, p provider.Provider, log zerolog.Logger) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()
	log.Info().Str("remote", remote).Msg("accepted connection")

	if err := p.Handle(ctx, conn); err != nil {
		log.Warn().Str("remote", remote).Err(err).Msg("connection ended with error")
		return
	}
	log.Info().Str("remote", remote).Msg("connection closed")
}
