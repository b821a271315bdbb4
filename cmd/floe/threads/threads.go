// Package threadscmder provides the threads command for managing
// Cortex conversation threads.
package threadscmder

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/frostpeakco/floe/pkg/cliui"
	"github.com/frostpeakco/floe/pkg/config"
	"github.com/frostpeakco/floe/pkg/cortex"
	"github.com/frostpeakco/floe/pkg/logger"
	"github.com/frostpeakco/floe/pkg/utils"
)

type threadsCommander struct {
	debug bool

	cfg    *config.Config
	logger *zap.Logger
}

const threadsLongDesc string = `Manage Cortex conversation threads.

Threads live on the Snowflake side; these commands list, create,
rename, and delete them for the configured origin application.

Examples:
  floe threads
  floe threads create
  floe threads rename 42 "Q3 revenue deep dive"
  floe threads delete 42`

const threadsShortDesc string = "Manage conversation threads"

func NewThreadsCmd() *cobra.Command {
	cmder := &threadsCommander{}

	cmd := &cobra.Command{
		Use:   "threads",
		Short: threadsShortDesc,
		Long:  threadsLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.runList(cmd)
		},
	}

	create := &cobra.Command{
		Use:   "create",
		Short: "Create a new conversation thread",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.runCreate(cmd)
		},
	}

	rename := &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a conversation thread",
		Args:  cobra.ExactArgs(2),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.runRename(cmd, args[0], args[1])
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a conversation thread",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.runDelete(cmd, args[0])
		},
	}

	cmd.AddCommand(create)
	cmd.AddCommand(rename)
	cmd.AddCommand(del)

	return cmd
}

func (c *threadsCommander) setup(cmd *cobra.Command) error {
	configDir, _ := cmd.Flags().GetString("config-dir")
	v, err := config.InitViper(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	c.cfg = config.FromViper(v)

	c.debug, _ = cmd.Flags().GetBool("debug")
	c.logger = logger.NewLogger(c.debug)

	return nil
}

func (c *threadsCommander) client() (*cortex.Client, error) {
	return cortex.NewClientFromConfig(c.cfg, c.logger)
}

func (c *threadsCommander) runList(cmd *cobra.Command) error {
	client, err := c.client()
	if err != nil {
		return fmt.Errorf("creating cortex client: %w", err)
	}
	defer c.logger.Sync()

	threads, err := client.ListThreads(cmd.Context(), c.cfg.Snowflake.OriginApplication)
	if err != nil {
		return err
	}

	if len(threads) == 0 {
		fmt.Printf("\n  %s No threads yet. Create one with 'floe threads create'.\n\n",
			cliui.DimStyle.Render("●"))
		return nil
	}

	fmt.Println()
	for _, t := range threads {
		name := t.ThreadName
		if name == "" {
			name = "(unnamed)"
		}
		updated := time.UnixMilli(t.UpdatedOn).Format("2006-01-02 15:04")
		fmt.Printf("  %s  %s  %s\n",
			cliui.HashStyle.Render(strconv.FormatInt(t.ThreadID, 10)),
			cliui.NameStyle.Render(utils.Truncate(name, 48)),
			cliui.DimStyle.Render(updated),
		)
	}
	fmt.Println()

	return nil
}

func (c *threadsCommander) runCreate(cmd *cobra.Command) error {
	client, err := c.client()
	if err != nil {
		return fmt.Errorf("creating cortex client: %w", err)
	}
	defer c.logger.Sync()

	threadID, err := client.CreateThread(cmd.Context(), c.cfg.Snowflake.OriginApplication)
	if err != nil {
		return err
	}

	fmt.Printf("\n  %s Created thread %s\n\n",
		cliui.SuccessMark,
		cliui.HashStyle.Render(strconv.FormatInt(threadID, 10)),
	)

	return nil
}

func (c *threadsCommander) runRename(cmd *cobra.Command, idArg, name string) error {
	threadID, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid thread id: %q", idArg)
	}

	client, err := c.client()
	if err != nil {
		return fmt.Errorf("creating cortex client: %w", err)
	}
	defer c.logger.Sync()

	if err := client.RenameThread(cmd.Context(), threadID, name); err != nil {
		return err
	}

	fmt.Printf("\n  %s Renamed thread %s to %s\n\n",
		cliui.SuccessMark,
		cliui.HashStyle.Render(idArg),
		cliui.NameStyle.Render(name),
	)

	return nil
}

func (c *threadsCommander) runDelete(cmd *cobra.Command, idArg string) error {
	threadID, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid thread id: %q", idArg)
	}

	client, err := c.client()
	if err != nil {
		return fmt.Errorf("creating cortex client: %w", err)
	}
	defer c.logger.Sync()

	if err := client.DeleteThread(cmd.Context(), threadID); err != nil {
		return err
	}

	fmt.Printf("\n  %s Deleted thread %s\n\n",
		cliui.SuccessMark,
		cliui.HashStyle.Render(idArg),
	)

	return nil
}
