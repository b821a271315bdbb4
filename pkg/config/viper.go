package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/frostpeakco/floe/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the FLOE_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (FLOE_SERVER_LISTEN, FLOE_SNOWFLAKE_PAT, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: FLOE_SNOWFLAKE_ACCOUNT, FLOE_SERVER_LISTEN, etc.
	v.SetEnvPrefix("FLOE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes a Config from the resolved viper state, after
// flags, environment variables, file values, and defaults have been merged.
func FromViper(v *viper.Viper) *Config {
	verify := v.GetBool("snowflake.ssl_verify")

	return &Config{
		Version: v.GetInt("version"),
		Snowflake: SnowflakeConfig{
			Account:           v.GetString("snowflake.account"),
			PAT:               v.GetString("snowflake.pat"),
			OAuthToken:        v.GetString("snowflake.oauth_token"),
			SSLVerify:         &verify,
			OriginApplication: v.GetString("snowflake.origin_application"),
		},
		Agent: AgentConfig{
			Database: v.GetString("agent.database"),
			Schema:   v.GetString("agent.schema"),
			Name:     v.GetString("agent.name"),
			Model:    v.GetString("agent.model"),
		},
		Server: ServerConfig{
			Listen: v.GetString("server.listen"),
		},
		Storage: StorageConfig{
			SQLitePath: v.GetString("storage.sqlite_path"),
		},
		Client: ClientConfig{
			ServerTarget: v.GetString("client.server_target"),
		},
		EventStream: EventStreamConfig{
			Provider: v.GetString("event_stream.provider"),
			Brokers:  v.GetString("event_stream.brokers"),
			Topic:    v.GetString("event_stream.topic"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Snowflake
	v.SetDefault("snowflake.account", d.Snowflake.Account)
	v.SetDefault("snowflake.pat", d.Snowflake.PAT)
	v.SetDefault("snowflake.oauth_token", d.Snowflake.OAuthToken)
	v.SetDefault("snowflake.ssl_verify", d.SSLVerifyEnabled())
	v.SetDefault("snowflake.origin_application", d.Snowflake.OriginApplication)

	// Agent
	v.SetDefault("agent.database", d.Agent.Database)
	v.SetDefault("agent.schema", d.Agent.Schema)
	v.SetDefault("agent.name", d.Agent.Name)
	v.SetDefault("agent.model", d.Agent.Model)

	// Server
	v.SetDefault("server.listen", d.Server.Listen)

	// Storage
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)

	// Client
	v.SetDefault("client.server_target", d.Client.ServerTarget)

	// Event stream
	v.SetDefault("event_stream.provider", d.EventStream.Provider)
	v.SetDefault("event_stream.brokers", d.EventStream.Brokers)
	v.SetDefault("event_stream.topic", d.EventStream.Topic)
}
