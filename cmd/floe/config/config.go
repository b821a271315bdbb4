// Package configcmder provides the config command for managing persistent
// floe configuration stored in the .floe/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent floe configuration.

Configuration is stored as config.toml in the .floe/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  snowflake.account, snowflake.pat, snowflake.oauth_token,
  snowflake.ssl_verify, snowflake.origin_application,
  agent.database, agent.schema, agent.name, agent.model,
  server.listen, storage.sqlite_path, client.server_target,
  event_stream.provider, event_stream.brokers, event_stream.topic

Use subcommands to get, set, or list configuration values:
  floe config set <key> <value>    Set a configuration value
  floe config get <key>            Get a configuration value
  floe config list                 List all configuration values

Examples:
  floe config set snowflake.account myorg-myacct
  floe config set agent.database SALES
  floe config get agent.model
  floe config list`

const configShortDesc string = "Manage persistent floe configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
