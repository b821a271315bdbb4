// Package server provides the HTTP server for the agent chat service.
// It exposes thread and agent management endpoints and streams agent
// turns to clients as server-sent render operations.
package server

import "github.com/frostpeakco/floe/pkg/config"

// Config is the chat server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// Account is the Snowflake account identifier, used for event
	// source attribution.
	Account string

	// Database and Schema locate the agents served by this instance.
	Database string
	Schema   string

	// Agent is the default agent name for turns that do not name one.
	Agent string

	// Model is the fallback orchestration model when the agent spec
	// does not pin one.
	Model string

	// OriginApplication tags threads created by this server.
	OriginApplication string
}

// ConfigFromFile builds a server Config from the resolved file config.
func ConfigFromFile(cfg *config.Config) Config {
	return Config{
		ListenAddr:        cfg.Server.Listen,
		Account:           cfg.Snowflake.Account,
		Database:          cfg.Agent.Database,
		Schema:            cfg.Agent.Schema,
		Agent:             cfg.Agent.Name,
		Model:             cfg.Agent.Model,
		OriginApplication: cfg.Snowflake.OriginApplication,
	}
}
