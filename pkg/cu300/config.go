// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Chris Toffer

package cu300

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration, loadable from YAML with
// defaults for every field.
type Config struct {
	Connection ConnectionConfig `mapstructure:"connection"`
	Protocol   ProtocolConfig   `mapstructure:"protocol"`
	Poll       PollConfig       `mapstructure:"poll"`
	Timeouts   TimeoutConfig    `mapstructure:"timeouts"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ConnectionConfig selects and parameterizes the transport.
type ConnectionConfig struct {
	Type   string       `mapstructure:"type"` // serial, tcp, websocket
	Serial SerialConfig `mapstructure:"serial"`
	TCP    TCPConfig    `mapstructure:"tcp"`
	WS     WSConfig     `mapstructure:"websocket"`
}

// SerialConfig parameterizes the serial transport.
type SerialConfig struct {
	Port string `mapstructure:"port"`
	Baud int    `mapstructure:"baud"`
}

// TCPConfig parameterizes the TCP transport.
type TCPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// WSConfig parameterizes the WebSocket bridge transport. The password is
// never stored in config; it comes from the environment or a prompt.
type WSConfig struct {
	URL           string `mapstructure:"url"`
	Username      string `mapstructure:"username"`
	SkipTLSVerify bool   `mapstructure:"skip_tls_verify"`
}

// ProtocolConfig carries GENIBus addressing.
type ProtocolConfig struct {
	DeviceAddress byte   `mapstructure:"device_address"`
	SourceAddress byte   `mapstructure:"source_address"`
	Family        string `mapstructure:"family"`
}

// PollConfig drives the coordinator's periodic poll cycle.
type PollConfig struct {
	Interval     time.Duration `mapstructure:"interval"`
	Measurements []string      `mapstructure:"measurements"`
}

// TimeoutConfig bounds every suspension point. Unbounded reads are bugs; a
// silent device must never hang the engine.
type TimeoutConfig struct {
	Connect          time.Duration `mapstructure:"connect"`
	Handshake        time.Duration `mapstructure:"handshake"`
	Poll             time.Duration `mapstructure:"poll"`
	Command          time.Duration `mapstructure:"command"`
	ReconnectBackoff time.Duration `mapstructure:"reconnect_backoff"`
}

// LoggingConfig controls the zap logger built by the CLI.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Connection: ConnectionConfig{
			Type:   "serial",
			Serial: SerialConfig{Port: "/dev/ttyUSB0", Baud: 9600},
			TCP:    TCPConfig{Port: 502},
		},
		Protocol: ProtocolConfig{
			DeviceAddress: 0x20,
			SourceAddress: 0x04,
			Family:        "cu300",
		},
		Poll: PollConfig{
			Interval:     30 * time.Second,
			Measurements: []string{"h", "q", "p", "speed", "act_mode1", "alarm_code"},
		},
		Timeouts: TimeoutConfig{
			Connect:          10 * time.Second,
			Handshake:        5 * time.Second,
			Poll:             10 * time.Second,
			Command:          5 * time.Second,
			ReconnectBackoff: time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// LoadConfig reads a YAML config file, layering it over the defaults.
// An empty path searches the working directory and ~/.cu300 for cu300.yaml.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("cu300")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.cu300")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			// No file anywhere on the search path: defaults apply.
		} else {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("connection.type", d.Connection.Type)
	v.SetDefault("connection.serial.port", d.Connection.Serial.Port)
	v.SetDefault("connection.serial.baud", d.Connection.Serial.Baud)
	v.SetDefault("connection.tcp.host", d.Connection.TCP.Host)
	v.SetDefault("connection.tcp.port", d.Connection.TCP.Port)
	v.SetDefault("connection.websocket.url", d.Connection.WS.URL)
	v.SetDefault("connection.websocket.username", d.Connection.WS.Username)
	v.SetDefault("connection.websocket.skip_tls_verify", d.Connection.WS.SkipTLSVerify)
	v.SetDefault("protocol.device_address", d.Protocol.DeviceAddress)
	v.SetDefault("protocol.source_address", d.Protocol.SourceAddress)
	v.SetDefault("protocol.family", d.Protocol.Family)
	v.SetDefault("poll.interval", d.Poll.Interval)
	v.SetDefault("poll.measurements", d.Poll.Measurements)
	v.SetDefault("timeouts.connect", d.Timeouts.Connect)
	v.SetDefault("timeouts.handshake", d.Timeouts.Handshake)
	v.SetDefault("timeouts.poll", d.Timeouts.Poll)
	v.SetDefault("timeouts.command", d.Timeouts.Command)
	v.SetDefault("timeouts.reconnect_backoff", d.Timeouts.ReconnectBackoff)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	switch c.Connection.Type {
	case "serial":
		if c.Connection.Serial.Port == "" {
			return fmt.Errorf("config: serial connection requires a port")
		}
	case "tcp":
		if c.Connection.TCP.Host == "" {
			return fmt.Errorf("config: tcp connection requires a host")
		}
		if c.Connection.TCP.Port <= 0 || c.Connection.TCP.Port > 65535 {
			return fmt.Errorf("config: invalid tcp port %d", c.Connection.TCP.Port)
		}
	case "websocket":
		if c.Connection.WS.URL == "" {
			return fmt.Errorf("config: websocket connection requires a URL")
		}
	default:
		return fmt.Errorf("config: unknown connection type %q", c.Connection.Type)
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("config: poll interval must be positive")
	}
	if len(c.Poll.Measurements) == 0 {
		return fmt.Errorf("config: poll measurement set is empty")
	}
	for _, t := range []struct {
		name string
		d    time.Duration
	}{
		{"connect", c.Timeouts.Connect},
		{"handshake", c.Timeouts.Handshake},
		{"poll", c.Timeouts.Poll},
		{"command", c.Timeouts.Command},
	} {
		if t.d <= 0 {
			return fmt.Errorf("config: %s timeout must be positive", t.name)
		}
	}
	return nil
}
