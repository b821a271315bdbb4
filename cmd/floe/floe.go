// Package floecmder
package floecmder

import (
	"github.com/spf13/cobra"

	agentscmder "github.com/frostpeakco/floe/cmd/floe/agents"
	authcmder "github.com/frostpeakco/floe/cmd/floe/auth"
	chatcmder "github.com/frostpeakco/floe/cmd/floe/chat"
	configcmder "github.com/frostpeakco/floe/cmd/floe/config"
	logscmder "github.com/frostpeakco/floe/cmd/floe/logs"
	servecmder "github.com/frostpeakco/floe/cmd/floe/serve"
	threadscmder "github.com/frostpeakco/floe/cmd/floe/threads"
	versioncmder "github.com/frostpeakco/floe/cmd/version"
)

const floeLongDesc string = `Floe is a chat service for Snowflake Cortex agents.

Run the web chat server using:
  floe serve           Run the chat server

Talk to an agent from the terminal using:
  floe chat            Interactive chat session
  floe agents          List and inspect available agents
  floe threads         Manage conversation threads`

const floeShortDesc string = "Floe - Cortex Agent Chat"

func NewFloeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "floe",
		Short: floeShortDesc,
		Long:  floeLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .floe/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(agentscmder.NewAgentsCmd())
	cmd.AddCommand(threadscmder.NewThreadsCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(logscmder.NewLogsCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
