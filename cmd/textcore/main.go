// Package main is the entry point for the textcore editing backend.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"

	"github.com/dshills/textcore/internal/core"
	"github.com/dshills/textcore/internal/log"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

type options struct {
	LogLevel string
	Listen   string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()
	logger := log.New(log.Config{
		Level:  log.ParseLevel(opts.LogLevel),
		Prefix: "textcore",
	})

	if opts.Listen != "" {
		return serveWebSocket(opts.Listen, logger)
	}
	return serveStdio(logger)
}

// serveStdio runs a single session over stdin/stdout, the default
// channel. All logging goes to stderr so stdout stays pure protocol.
func serveStdio(logger *log.Logger) int {
	t := newStdioTransport(os.Stdin, os.Stdout)
	s := newSession(t, logger)
	c := core.New(s, core.DiskStore{}, logger)
	s.core = c
	defer c.Shutdown()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		c.Shutdown()
		os.Exit(0)
	}()

	if err := s.run(); err != nil {
		logger.Error("session: %v", err)
		return 1
	}
	return 0
}

// serveWebSocket accepts client channels over WebSocket, one core
// per connection.
func serveWebSocket(addr string, logger *log.Logger) int {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  64 * 1024,
		WriteBufferSize: 64 * 1024,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("upgrade from %s: %v", r.RemoteAddr, err)
			return
		}
		go func() {
			t := &wsTransport{conn: conn}
			s := newSession(t, logger)
			c := core.New(s, core.DiskStore{}, logger)
			s.core = c
			defer c.Shutdown()
			defer t.Close()
			logger.Info("client connected from %s", r.RemoteAddr)
			if err := s.run(); err != nil {
				logger.Warn("session from %s: %v", r.RemoteAddr, err)
			}
			logger.Info("client from %s disconnected", r.RemoteAddr)
		}()
	})

	logger.Info("listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("listen on %s: %v", addr, err)
		return 1
	}
	return 0
}

func parseFlags() options {
	var opts options
	var showVersion bool

	flag.StringVar(&opts.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&opts.Listen, "listen", "", "Serve clients over WebSocket on this address instead of stdio")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "textcore - text editing backend\n\n")
		fmt.Fprintf(os.Stderr, "Usage: textcore [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  textcore                    Serve a client over stdin/stdout\n")
		fmt.Fprintf(os.Stderr, "  textcore -listen :9257      Serve clients over WebSocket\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("textcore %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		os.Exit(0)
	}

	switch opts.LogLevel {
	case "debug", "info", "warn", "error":
		// Valid
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.LogLevel)
		os.Exit(1)
	}

	return opts
}
