// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Chris Toffer

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/chr15toffer/GrundfosCU300/pkg/cu300"
)

var (
	cfgFile string

	// Serial connection flags
	portName string
	baudRate int

	// TCP connection flags
	tcpHost string
	tcpPort int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoTLSVerify bool

	// Protocol flags
	deviceAddr uint8

	verbose bool

	logger *zap.Logger
	cfg    *cu300.Config
)

var rootCmd = &cobra.Command{
	Use:   "cu300",
	Short: "Grundfos CU300 GENIBus client",
	Long: `cu300 - Poll and control Grundfos pump controllers over GENIBus.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 9600]
  TCP:       --host 192.168.1.50 [--tcp-port 502]
  WebSocket: --url ws://host/path [--username user]

Flags override the config file (cu300.yaml in the working directory or
~/.cu300, or --config <file>).

For WebSocket authentication, the password is read from the CU300_PASSWORD
environment variable, or prompted interactively if not set. A --password
flag is intentionally not provided to avoid leaking credentials in shell
history.`,
	Version:       "1.2.0",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = cu300.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		applyFlagOverrides(cmd)
		logger, err = newLogger()
		if err != nil {
			return fmt.Errorf("logger setup: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file path")

	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 0, "Baud rate (serial only)")

	rootCmd.PersistentFlags().StringVar(&tcpHost, "host", "", "TCP host of a serial server")
	rootCmd.PersistentFlags().IntVar(&tcpPort, "tcp-port", 0, "TCP port of a serial server")

	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket bridge URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoTLSVerify, "no-tls-verify", false, "Skip TLS certificate verification (wss:// only)")

	rootCmd.PersistentFlags().Uint8Var(&deviceAddr, "address", 0, "GENIBus device address (default 0x20)")

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging, including frame hex dumps")
}

// applyFlagOverrides layers explicit CLI flags over the loaded config.
// Setting a connection flag also selects that connection type.
func applyFlagOverrides(cmd *cobra.Command) {
	if portName != "" {
		cfg.Connection.Type = "serial"
		cfg.Connection.Serial.Port = portName
	}
	if baudRate > 0 {
		cfg.Connection.Serial.Baud = baudRate
	}
	if tcpHost != "" {
		cfg.Connection.Type = "tcp"
		cfg.Connection.TCP.Host = tcpHost
	}
	if tcpPort > 0 {
		cfg.Connection.TCP.Port = tcpPort
	}
	if wsURL != "" {
		cfg.Connection.Type = "websocket"
		cfg.Connection.WS.URL = wsURL
	}
	if wsUsername != "" {
		cfg.Connection.WS.Username = wsUsername
	}
	if wsNoTLSVerify {
		cfg.Connection.WS.SkipTLSVerify = true
	}
	if cmd.Flags().Changed("address") {
		cfg.Protocol.DeviceAddress = deviceAddr
	}
}

func newLogger() (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Logging.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
