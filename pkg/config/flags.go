package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --agent
// on both "floe chat" and "floe threads list").
type Flag struct {
	// Name is the long flag name (e.g. "listen").
	Name string

	// Shorthand is the one-letter short flag (e.g. "l"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "server.listen").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag and BindRegisteredFlags
// to avoid typos or drift from one command to another.
const (
	FlagAccount      = "account"
	FlagAgentDB      = "agent-database"
	FlagAgentSchema  = "agent-schema"
	FlagAgentName    = "agent-name"
	FlagModel        = "model"
	FlagListen       = "listen"
	FlagSQLite       = "sqlite"
	FlagServerTarget = "server-target"
	FlagESProvider   = "event-stream-provider"
	FlagESBrokers    = "event-stream-brokers"
	FlagESTopic      = "event-stream-topic"
)

// Flags is the shared flag registry for floe commands.
var Flags = FlagSet{
	FlagAccount: {
		Name:        "account",
		ViperKey:    "snowflake.account",
		Description: "Snowflake account identifier (e.g. myorg-myacct)",
	},
	FlagAgentDB: {
		Name:        "database",
		ViperKey:    "agent.database",
		Description: "Database holding the Cortex agents",
	},
	FlagAgentSchema: {
		Name:        "schema",
		ViperKey:    "agent.schema",
		Description: "Schema holding the Cortex agents",
	},
	FlagAgentName: {
		Name:        "agent",
		Shorthand:   "a",
		ViperKey:    "agent.name",
		Description: "Default agent name for turns",
	},
	FlagModel: {
		Name:        "model",
		Shorthand:   "m",
		ViperKey:    "agent.model",
		Description: "Orchestration model requested for agent runs",
	},
	FlagListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "server.listen",
		Description: "Address for the chat server to listen on",
	},
	FlagSQLite: {
		Name:        "sqlite",
		Shorthand:   "s",
		ViperKey:    "storage.sqlite_path",
		Description: "Path to SQLite thread cache (default: in-memory)",
	},
	FlagServerTarget: {
		Name:        "server-target",
		Shorthand:   "t",
		ViperKey:    "client.server_target",
		Description: "URL of a running floe server",
	},
	FlagESProvider: {
		Name:        "event-stream-provider",
		ViperKey:    "event_stream.provider",
		Description: "Turn event publisher backend (nop, kafka)",
	},
	FlagESBrokers: {
		Name:        "event-stream-brokers",
		ViperKey:    "event_stream.brokers",
		Description: "Comma-separated Kafka broker addresses",
	},
	FlagESTopic: {
		Name:        "event-stream-topic",
		ViperKey:    "event_stream.topic",
		Description: "Kafka topic for turn finalized events",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}
