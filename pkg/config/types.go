package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent floe configuration stored as config.toml
// in the .floe/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Snowflake   SnowflakeConfig   `toml:"snowflake"`
	Agent       AgentConfig       `toml:"agent"`
	Server      ServerConfig      `toml:"server"`
	Storage     StorageConfig     `toml:"storage"`
	Client      ClientConfig      `toml:"client"`
	EventStream EventStreamConfig `toml:"event_stream"`
}

// SnowflakeConfig holds account and authentication settings for the
// Cortex Agents REST API.
type SnowflakeConfig struct {
	// Account is the Snowflake account identifier (e.g. myorg-myacct).
	Account string `toml:"account,omitempty"`

	// PAT is a programmatic access token.
	PAT string `toml:"pat,omitempty"`

	// OAuthToken is an OAuth access token, used ahead of the PAT when set.
	OAuthToken string `toml:"oauth_token,omitempty"`

	// SSLVerify toggles TLS certificate verification. Defaults to true;
	// only disable against development accounts.
	SSLVerify *bool `toml:"ssl_verify,omitempty"`

	// OriginApplication identifies this app on created threads.
	// The Cortex threads API caps this at 16 bytes.
	OriginApplication string `toml:"origin_application,omitempty"`
}

// AgentConfig selects the default Cortex agent to converse with.
type AgentConfig struct {
	Database string `toml:"database,omitempty"`
	Schema   string `toml:"schema,omitempty"`
	Name     string `toml:"name,omitempty"`

	// Model is the orchestration model requested for agent runs.
	Model string `toml:"model,omitempty"`
}

// ServerConfig holds web chat server settings.
type ServerConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// StorageConfig holds local thread history cache settings.
type StorageConfig struct {
	SQLitePath string `toml:"sqlite_path,omitempty"`
}

// ClientConfig holds settings for CLI commands that connect to a running
// floe server. Values are full URLs (scheme + host + port).
type ClientConfig struct {
	ServerTarget string `toml:"server_target,omitempty"`
}

// EventStreamConfig holds turn-finalized event publishing settings.
type EventStreamConfig struct {
	// Provider selects the publisher backend: "nop" or "kafka".
	Provider string `toml:"provider,omitempty"`

	// Brokers is a comma-separated list of Kafka broker addresses.
	Brokers string `toml:"brokers,omitempty"`

	// Topic is the Kafka topic turn events are published to.
	Topic string `toml:"topic,omitempty"`
}

// SSLVerifyEnabled reports the effective TLS verification setting.
func (c *Config) SSLVerifyEnabled() bool {
	if c.Snowflake.SSLVerify == nil {
		return true
	}
	return *c.Snowflake.SSLVerify
}

// AgentQualifiedName returns the configured agent as database.schema.name,
// or an empty string when no agent is configured.
func (c *Config) AgentQualifiedName() string {
	if c.Agent.Database == "" || c.Agent.Schema == "" || c.Agent.Name == "" {
		return ""
	}
	return c.Agent.Database + "." + c.Agent.Schema + "." + c.Agent.Name
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"snowflake.account": {
		get: func(c *Config) string { return c.Snowflake.Account },
		set: func(c *Config, v string) error { c.Snowflake.Account = v; return nil },
	},
	"snowflake.pat": {
		get: func(c *Config) string { return c.Snowflake.PAT },
		set: func(c *Config, v string) error { c.Snowflake.PAT = v; return nil },
	},
	"snowflake.oauth_token": {
		get: func(c *Config) string { return c.Snowflake.OAuthToken },
		set: func(c *Config, v string) error { c.Snowflake.OAuthToken = v; return nil },
	},
	"snowflake.ssl_verify": {
		get: func(c *Config) string {
			return strconv.FormatBool(c.SSLVerifyEnabled())
		},
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for snowflake.ssl_verify: %w", err)
			}
			c.Snowflake.SSLVerify = &b
			return nil
		},
	},
	"snowflake.origin_application": {
		get: func(c *Config) string { return c.Snowflake.OriginApplication },
		set: func(c *Config, v string) error {
			if len(v) > maxOriginApplicationBytes {
				return fmt.Errorf("origin_application %q exceeds %d bytes", v, maxOriginApplicationBytes)
			}
			c.Snowflake.OriginApplication = v
			return nil
		},
	},
	"agent.database": {
		get: func(c *Config) string { return c.Agent.Database },
		set: func(c *Config, v string) error { c.Agent.Database = v; return nil },
	},
	"agent.schema": {
		get: func(c *Config) string { return c.Agent.Schema },
		set: func(c *Config, v string) error { c.Agent.Schema = v; return nil },
	},
	"agent.name": {
		get: func(c *Config) string { return c.Agent.Name },
		set: func(c *Config, v string) error { c.Agent.Name = v; return nil },
	},
	"agent.model": {
		get: func(c *Config) string { return c.Agent.Model },
		set: func(c *Config, v string) error { c.Agent.Model = v; return nil },
	},
	"server.listen": {
		get: func(c *Config) string { return c.Server.Listen },
		set: func(c *Config, v string) error { c.Server.Listen = v; return nil },
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"client.server_target": {
		get: func(c *Config) string { return c.Client.ServerTarget },
		set: func(c *Config, v string) error { c.Client.ServerTarget = v; return nil },
	},
	"event_stream.provider": {
		get: func(c *Config) string { return c.EventStream.Provider },
		set: func(c *Config, v string) error { c.EventStream.Provider = v; return nil },
	},
	"event_stream.brokers": {
		get: func(c *Config) string { return c.EventStream.Brokers },
		set: func(c *Config, v string) error { c.EventStream.Brokers = v; return nil },
	},
	"event_stream.topic": {
		get: func(c *Config) string { return c.EventStream.Topic },
		set: func(c *Config, v string) error { c.EventStream.Topic = v; return nil },
	},
}
