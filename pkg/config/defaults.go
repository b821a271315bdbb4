package config

const (
	defaultListen       = ":8080"
	defaultServerTarget = "http://localhost:8080"

	defaultOriginApplication = "FloeAgentChat"
	defaultAgentModel        = "claude-4-sonnet"

	defaultEventStreamProvider = "nop"
	defaultEventStreamTopic    = "floe.turns"

	// maxOriginApplicationBytes is the vendor-side limit on the
	// origin_application field of a created thread.
	maxOriginApplicationBytes = 16
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	verify := true
	return &Config{
		Version: CurrentV,
		Snowflake: SnowflakeConfig{
			SSLVerify:         &verify,
			OriginApplication: defaultOriginApplication,
		},
		Agent: AgentConfig{
			Model: defaultAgentModel,
		},
		Server: ServerConfig{
			Listen: defaultListen,
		},
		Client: ClientConfig{
			ServerTarget: defaultServerTarget,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultEventStreamTopic,
		},
	}
}
