// Package agentscmder provides the agents command for discovering Cortex agents.
package agentscmder

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/frostpeakco/floe/pkg/cliui"
	"github.com/frostpeakco/floe/pkg/config"
	"github.com/frostpeakco/floe/pkg/cortex"
	"github.com/frostpeakco/floe/pkg/logger"
)

type agentsCommander struct {
	database string
	schema   string
	debug    bool

	cfg    *config.Config
	logger *zap.Logger
}

const agentsLongDesc string = `List and inspect Cortex agents.

Lists the agents in the configured database schema, or shows the full
configuration of one agent including its orchestration model, tool
count, and sample questions.

Examples:
  floe agents
  floe agents describe REVENUE_AGENT
  floe agents --database SALES --schema PUBLIC`

const agentsShortDesc string = "List and inspect Cortex agents"

func NewAgentsCmd() *cobra.Command {
	cmder := &agentsCommander{}

	cmd := &cobra.Command{
		Use:   "agents",
		Short: agentsShortDesc,
		Long:  agentsLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.loadConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			return cmder.runList(cmd)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAgentDB, &cmder.database)
	config.AddStringFlag(cmd, config.Flags, config.FlagAgentSchema, &cmder.schema)

	describe := &cobra.Command{
		Use:   "describe <name>",
		Short: "Show an agent's configuration",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.loadConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			return cmder.runDescribe(cmd, args[0])
		},
	}
	config.AddStringFlag(describe, config.Flags, config.FlagAgentDB, &cmder.database)
	config.AddStringFlag(describe, config.Flags, config.FlagAgentSchema, &cmder.schema)
	cmd.AddCommand(describe)

	return cmd
}

func (c *agentsCommander) loadConfig(cmd *cobra.Command) error {
	configDir, _ := cmd.Flags().GetString("config-dir")
	v, err := config.InitViper(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	config.BindRegisteredFlags(v, cmd, config.Flags, []string{
		config.FlagAgentDB,
		config.FlagAgentSchema,
	})

	c.cfg = config.FromViper(v)

	if c.cfg.Agent.Database == "" || c.cfg.Agent.Schema == "" {
		return fmt.Errorf("no agent database or schema configured\n\nSet them with:\n  floe config set agent.database <db>\n  floe config set agent.schema <schema>")
	}

	return nil
}

func (c *agentsCommander) client() (*cortex.Client, error) {
	c.logger = logger.NewLogger(c.debug)
	return cortex.NewClientFromConfig(c.cfg, c.logger)
}

func (c *agentsCommander) runList(cmd *cobra.Command) error {
	client, err := c.client()
	if err != nil {
		return fmt.Errorf("creating cortex client: %w", err)
	}
	defer c.logger.Sync()

	agents, err := client.ListAgents(cmd.Context(), c.cfg.Agent.Database, c.cfg.Agent.Schema)
	if err != nil {
		return err
	}

	if len(agents) == 0 {
		fmt.Printf("\n  %s No agents found in %s.%s\n\n",
			cliui.DimStyle.Render("●"),
			c.cfg.Agent.Database, c.cfg.Agent.Schema)
		return nil
	}

	fmt.Printf("\n  %s %s\n\n",
		cliui.KeyStyle.Render("Agents in"),
		cliui.ValueStyle.Render(c.cfg.Agent.Database+"."+c.cfg.Agent.Schema),
	)
	for _, agent := range agents {
		line := fmt.Sprintf("  %s", cliui.NameStyle.Render(agent.Name))
		if agent.Comment != "" {
			line += "  " + cliui.DimStyle.Render(agent.Comment)
		}
		fmt.Println(line)
	}
	fmt.Println()

	return nil
}

func (c *agentsCommander) runDescribe(cmd *cobra.Command, name string) error {
	client, err := c.client()
	if err != nil {
		return fmt.Errorf("creating cortex client: %w", err)
	}
	defer c.logger.Sync()

	agent, err := client.DescribeAgent(cmd.Context(), c.cfg.Agent.Database, c.cfg.Agent.Schema, name)
	if err != nil {
		return err
	}

	model := agent.Model
	if model == "" {
		model = "auto"
	}

	fmt.Printf("\n  %s\n\n", cliui.NameStyle.Render(agent.QualifiedName()))
	fmt.Printf("  %s  %s\n", cliui.KeyStyle.Render("Owner:"), cliui.ValueStyle.Render(agent.Owner))
	fmt.Printf("  %s  %s\n", cliui.KeyStyle.Render("Model:"), cliui.ValueStyle.Render(model))
	fmt.Printf("  %s  %d\n", cliui.KeyStyle.Render("Tools:"), agent.ToolCount)
	if agent.Comment != "" {
		fmt.Printf("  %s  %s\n", cliui.KeyStyle.Render("About:"), cliui.DimStyle.Render(agent.Comment))
	}

	if len(agent.SampleQuestions) > 0 {
		md := "## Sample questions\n"
		for _, q := range agent.SampleQuestions {
			md += "- " + q + "\n"
		}
		rendered, err := cliui.RenderMarkdown(md)
		if err != nil {
			// Fall back to the raw list when the terminal renderer fails.
			fmt.Printf("\n%s", md)
		} else {
			fmt.Print(rendered)
		}
	}
	fmt.Println()

	return nil
}
