// Package config loads msock settings from a TOML file.
package config

import (
	"os"
	"time"

	"github.com/pelletier/go-toml"
	"go.uber.org/zap"

	"github.com/wippyai/multisock"
	"github.com/wippyai/multisock/errors"
	"github.com/wippyai/multisock/resolve"
	"github.com/wippyai/multisock/socket"
)

// Resolver kinds.
const (
	ResolverSystem = "system"
	ResolverDNS    = "dns"
)

// Config is the msock configuration file.
type Config struct {
	Group    GroupCfg    `toml:"group"`
	Resolver ResolverCfg `toml:"resolver"`
	Log      LogCfg      `toml:"log"`
	Metrics  MetricsCfg  `toml:"metrics"`
}

// GroupCfg configures the socket group.
type GroupCfg struct {
	SocketType string   `toml:"socket_type"`
	Protocol   string   `toml:"protocol"`
	Listen     []string `toml:"listen"`
	Backlog    int      `toml:"backlog"`
}

// ResolverCfg selects how names are resolved.
type ResolverCfg struct {
	Kind       string `toml:"kind"`
	Server     string `toml:"server"`
	Timeout    string `toml:"timeout"`
	PreferIPv4 bool   `toml:"prefer_ipv4"`
}

// LogCfg configures the zap logger.
type LogCfg struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// MetricsCfg configures the Prometheus endpoint. An empty Addr disables it.
type MetricsCfg struct {
	Addr string `toml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Group: GroupCfg{
			SocketType: "stream",
			Protocol:   "tcp",
			Backlog:    128,
		},
		Resolver: ResolverCfg{
			Kind:    ResolverSystem,
			Timeout: "2s",
		},
		Log: LogCfg{
			Level: "info",
		},
	}
}

// Load reads and validates a TOML file. Keys missing from the file keep their
// Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Config("read "+path, err)
	}
	return Parse(data)
}

// Parse decodes and validates TOML data.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Config("decode toml", err)
	}
	cfg.FillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FillDefaults sets every empty field to its default. An empty protocol is
// derived from the socket type.
func (c *Config) FillDefaults() {
	d := Default()
	if c.Group.SocketType == "" {
		c.Group.SocketType = d.Group.SocketType
	}
	if c.Group.Protocol == "" {
		// The protocol follows the socket type unless set explicitly.
		switch t, _ := socket.ParseType(c.Group.SocketType); t {
		case socket.Datagram:
			c.Group.Protocol = "udp"
		case socket.SeqPacket:
			c.Group.Protocol = "default"
		default:
			c.Group.Protocol = d.Group.Protocol
		}
	}
	if c.Group.Backlog == 0 {
		c.Group.Backlog = d.Group.Backlog
	}
	if c.Resolver.Kind == "" {
		c.Resolver.Kind = d.Resolver.Kind
	}
	if c.Resolver.Timeout == "" {
		c.Resolver.Timeout = d.Resolver.Timeout
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
}

// Validate checks every field that is parsed later.
func (c *Config) Validate() error {
	if _, err := c.Attr(); err != nil {
		return err
	}
	if _, err := c.ListenAddresses(); err != nil {
		return err
	}
	if c.Group.Backlog < 0 {
		return errors.Config("group.backlog must not be negative", nil)
	}
	if _, err := c.NewResolver(); err != nil {
		return err
	}
	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		return errors.Config("log.level", err)
	}
	return nil
}

// Attr returns the group attributes.
func (c *Config) Attr() (multisock.Attr, error) {
	t, err := socket.ParseType(c.Group.SocketType)
	if err != nil {
		return multisock.Attr{}, errors.Config("group.socket_type", err)
	}
	p, err := socket.ParseProtocol(c.Group.Protocol)
	if err != nil {
		return multisock.Attr{}, errors.Config("group.protocol", err)
	}
	return multisock.Attr{SocketType: t, Protocol: p}, nil
}

// ListenAddresses parses group.listen.
func (c *Config) ListenAddresses() ([]socket.Address, error) {
	addrs := make([]socket.Address, 0, len(c.Group.Listen))
	for _, s := range c.Group.Listen {
		a, err := socket.ParseAddress(s)
		if err != nil {
			return nil, errors.Config("group.listen", err)
		}
		addrs = append(addrs, a)
	}
	return addrs, nil
}

// NewResolver builds the configured resolver.
func (c *Config) NewResolver() (resolve.Resolver, error) {
	switch c.Resolver.Kind {
	case ResolverSystem:
		return resolve.NewSystem(), nil
	case ResolverDNS:
		if c.Resolver.Server == "" {
			return nil, errors.Config("resolver.server is required for the dns resolver", nil)
		}
		timeout, err := time.ParseDuration(c.Resolver.Timeout)
		if err != nil {
			return nil, errors.Config("resolver.timeout", err)
		}
		r := resolve.NewDNS(c.Resolver.Server)
		r.Client.Timeout = timeout
		r.PreferIPv4 = c.Resolver.PreferIPv4
		return r, nil
	}
	return nil, errors.Config("unknown resolver.kind "+c.Resolver.Kind, nil)
}

// NewLogger builds a zap logger from the log section.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(c.Log.Level)
	if err != nil {
		return nil, errors.Config("log.level", err)
	}

	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}
