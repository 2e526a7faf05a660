// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Chris Toffer

package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/chr15toffer/GrundfosCU300/pkg/cu300"
	"github.com/chr15toffer/GrundfosCU300/pkg/genibus"
)

// newDialer builds the transport factory for the configured connection.
// WebSocket credentials are resolved once, up front, so reconnects never
// prompt again mid-flight.
func newDialer() (cu300.DialFunc, error) {
	switch cfg.Connection.Type {
	case "serial":
		sc := cfg.Connection.Serial
		return func() cu300.Transport {
			return cu300.NewSerialTransport(sc.Port, sc.Baud)
		}, nil

	case "tcp":
		tc := cfg.Connection.TCP
		return func() cu300.Transport {
			return cu300.NewTCPTransport(tc.Host, tc.Port)
		}, nil

	case "websocket":
		wc := cfg.Connection.WS
		password := ""
		if wc.Username != "" {
			var err error
			password, err = getPassword()
			if err != nil {
				return nil, err
			}
		}
		return func() cu300.Transport {
			return cu300.NewWebSocketTransport(wc.URL, wc.Username, password, wc.SkipTLSVerify)
		}, nil

	default:
		return nil, fmt.Errorf("unknown connection type %q", cfg.Connection.Type)
	}
}

// newEngine wires catalog, transport factory, config, and logger together.
func newEngine() (*cu300.Engine, error) {
	dial, err := newDialer()
	if err != nil {
		return nil, err
	}
	catalog := genibus.DefaultCatalog()
	return cu300.NewEngine(catalog, dial, cfg, cu300.WithLogger(logger)), nil
}

// connectedEngine builds an engine and performs the handshake.
func connectedEngine(ctx context.Context) (*cu300.Engine, error) {
	engine, err := newEngine()
	if err != nil {
		return nil, err
	}
	if err := engine.Connect(ctx); err != nil {
		return nil, err
	}
	return engine, nil
}

// getPassword retrieves the WebSocket password from the environment or
// prompts the user without echo.
func getPassword() (string, error) {
	if pw := os.Getenv("CU300_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// connectionInfo describes the configured connection for display.
func connectionInfo() string {
	switch cfg.Connection.Type {
	case "serial":
		return fmt.Sprintf("Serial: %s @ %d baud", cfg.Connection.Serial.Port, cfg.Connection.Serial.Baud)
	case "tcp":
		return fmt.Sprintf("TCP: %s:%d", cfg.Connection.TCP.Host, cfg.Connection.TCP.Port)
	case "websocket":
		return fmt.Sprintf("WebSocket: %s", cfg.Connection.WS.URL)
	default:
		return cfg.Connection.Type
	}
}
