// Package chatcmder provides the chat command for interactive agent
// conversations through a running floe server.
package chatcmder

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/frostpeakco/floe/pkg/cliui"
	"github.com/frostpeakco/floe/pkg/config"
	"github.com/frostpeakco/floe/pkg/dotdir"
	"github.com/frostpeakco/floe/pkg/logger"
)

var (
	userPrompt  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true).Render("you> ")
	agentPrompt = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Render("agent> ")
)

type chatCommander struct {
	serverTarget string
	agent        string
	model        string
	threadArg    int64
	fresh        bool
	debug        bool

	cfg    *config.Config
	logger *zap.Logger
}

const chatLongDesc string = `Start an interactive chat session with a Cortex agent.

The chat command talks to a running floe server, which orchestrates the
agent run and streams the response back as it is produced. Status
updates, tool activity, tables, and citations all render inline.

The conversation thread is remembered in .floe/session.json, so
re-running "floe chat" resumes where the last session left off. Use
--new to start a fresh thread, or /new inside the session.

Examples:
  floe chat
  floe chat --agent REVENUE_AGENT
  floe chat --new
  floe chat --thread 42`

const chatShortDesc string = "Interactive chat with a Cortex agent"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, []string{
				config.FlagServerTarget,
				config.FlagAgentName,
				config.FlagModel,
			})

			cmder.cfg = config.FromViper(v)
			cmder.serverTarget = cmder.cfg.Client.ServerTarget
			cmder.agent = cmder.cfg.Agent.Name
			cmder.model = cmder.cfg.Agent.Model
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			configDir, _ := cmd.Flags().GetString("config-dir")
			return cmder.run(configDir)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagServerTarget, &cmder.serverTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagAgentName, &cmder.agent)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	cmd.Flags().Int64Var(&cmder.threadArg, "thread", 0, "Resume a specific thread id")
	cmd.Flags().BoolVar(&cmder.fresh, "new", false, "Start a fresh conversation thread")

	return cmd
}

func (c *chatCommander) run(configDir string) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	if c.agent == "" {
		return fmt.Errorf("no agent configured\n\nSet one with:\n  floe config set agent.name <name>\nor pass --agent")
	}

	client := newServerClient(c.serverTarget, c.logger)

	dotdirManager := dotdir.NewManager()
	threadID, resumed, err := c.resolveThread(client, dotdirManager, configDir)
	if err != nil {
		return err
	}

	fmt.Println()
	if resumed {
		fmt.Printf("  %s Resuming thread %s\n",
			cliui.SuccessMark,
			cliui.HashStyle.Render(strconv.FormatInt(threadID, 10)),
		)
	} else {
		fmt.Printf("  %s New conversation %s\n",
			cliui.DimStyle.Render("●"),
			cliui.DimStyle.Render(fmt.Sprintf("(thread %d)", threadID)),
		)
	}
	fmt.Printf("  %s %s\n\n",
		cliui.KeyStyle.Render("Agent:"),
		cliui.NameStyle.Render(c.agent),
	)
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /new for a fresh thread, /exit or Ctrl+D to quit."))

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			// EOF or error
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}
		if input == "/new" {
			threadID, err = client.createThread()
			if err != nil {
				fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
				continue
			}
			c.saveSession(dotdirManager, configDir, threadID)
			fmt.Printf("\n  %s New conversation %s\n\n",
				cliui.DimStyle.Render("●"),
				cliui.DimStyle.Render(fmt.Sprintf("(thread %d)", threadID)),
			)
			continue
		}

		renderer := newTurnRenderer(os.Stdout, c.markdownCapable())
		if err := client.runTurn(threadID, input, c.agent, c.model, renderer); err != nil {
			fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
			continue
		}

		c.saveSession(dotdirManager, configDir, threadID)
		fmt.Println()
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return nil
}

// resolveThread picks the thread for this session: an explicit --thread
// flag, the persisted session state, or a freshly created thread.
func (c *chatCommander) resolveThread(client *serverClient, manager *dotdir.Manager, configDir string) (int64, bool, error) {
	if c.threadArg != 0 {
		c.saveSession(manager, configDir, c.threadArg)
		return c.threadArg, true, nil
	}

	if !c.fresh {
		state, err := manager.LoadSessionState(configDir)
		if err != nil {
			return 0, false, fmt.Errorf("loading session state: %w", err)
		}
		if state != nil && state.ThreadID != "" && (state.Agent == "" || state.Agent == c.agent) {
			id, err := strconv.ParseInt(state.ThreadID, 10, 64)
			if err == nil {
				return id, true, nil
			}
		}
	}

	threadID, err := client.createThread()
	if err != nil {
		return 0, false, err
	}
	c.saveSession(manager, configDir, threadID)
	return threadID, false, nil
}

// saveSession persists the thread id; failures only cost session resume.
func (c *chatCommander) saveSession(manager *dotdir.Manager, configDir string, threadID int64) {
	state := &dotdir.SessionState{
		Agent:    c.agent,
		ThreadID: strconv.FormatInt(threadID, 10),
	}
	if err := manager.SaveSession(state, configDir); err != nil {
		c.logger.Warn("failed to save session state", zap.Error(err))
	}
}

// markdownCapable reports whether the final answer should be re-rendered
// as terminal markdown: requires a real terminal with color support.
func (c *chatCommander) markdownCapable() bool {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return false
	}
	return termenv.EnvColorProfile() != termenv.Ascii
}
