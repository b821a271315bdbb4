// Package servecmder provides the serve command for running the chat server.
package servecmder

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/frostpeakco/floe/pkg/config"
	"github.com/frostpeakco/floe/pkg/cortex"
	"github.com/frostpeakco/floe/pkg/dotdir"
	"github.com/frostpeakco/floe/pkg/eventstream"
	"github.com/frostpeakco/floe/pkg/eventstream/kafka"
	"github.com/frostpeakco/floe/pkg/eventstream/nop"
	"github.com/frostpeakco/floe/pkg/logger"
	"github.com/frostpeakco/floe/pkg/thread"
	"github.com/frostpeakco/floe/pkg/thread/inmemory"
	"github.com/frostpeakco/floe/pkg/thread/sqlite"
	"github.com/frostpeakco/floe/server"
)

type ServeCommander struct {
	listen     string
	sqlitePath string
	esProvider string
	esBrokers  string
	esTopic    string
	debug      bool

	cfg    *config.Config
	logger *zap.Logger
}

const serveLongDesc string = `Run the floe chat server.

The server fronts the Snowflake Cortex Agents REST API: it manages
conversation threads, streams agent turns to clients as server-sent
render operations, and caches finalized messages locally.

Configuration comes from config.toml in the .floe/ directory, FLOE_*
environment variables, and CLI flags (flags win).

Examples:
  floe serve
  floe serve --listen :9090
  floe serve --sqlite ~/.floe/threads.db
  floe serve --event-stream-provider kafka --event-stream-brokers localhost:9092`

const serveShortDesc string = "Run the floe chat server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, []string{
				config.FlagListen,
				config.FlagSQLite,
				config.FlagESProvider,
				config.FlagESBrokers,
				config.FlagESTopic,
			})

			cmder.cfg = config.FromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %v", err)
			}
			configDir, _ := cmd.Flags().GetString("config-dir")
			return cmder.run(configDir)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagESProvider, &cmder.esProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagESBrokers, &cmder.esBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagESTopic, &cmder.esTopic)

	return cmd
}

func (c *ServeCommander) run(configDir string) error {
	logWriters, closeLog, err := c.logWriters(configDir)
	if err != nil {
		return err
	}
	defer closeLog()

	c.logger = logger.NewLoggerWithWriters(c.debug, logWriters...)
	defer c.logger.Sync()

	client, err := cortex.NewClientFromConfig(c.cfg, c.logger)
	if err != nil {
		return fmt.Errorf("creating cortex client: %w", err)
	}

	store, err := c.createStore()
	if err != nil {
		return err
	}
	defer store.Close()

	publisher, err := c.createPublisher()
	if err != nil {
		return err
	}
	defer publisher.Close()

	srv, err := server.NewServer(server.ConfigFromFile(c.cfg), client, store, publisher, c.logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer srv.Close()

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return nil
	}
}

// logWriters returns the writers for the server logger: stdout plus the
// .floe/floe.log file so "floe logs" can follow a running server.
func (c *ServeCommander) logWriters(configDir string) ([]io.Writer, func(), error) {
	path, err := dotdir.NewManager().LogPath(configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving log path: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	return []io.Writer{os.Stdout, file}, func() { file.Close() }, nil
}

func (c *ServeCommander) createStore() (thread.Store, error) {
	if c.cfg.Storage.SQLitePath != "" {
		store, err := sqlite.NewStore(c.cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite store: %w", err)
		}
		c.logger.Info("using SQLite thread cache", zap.String("path", c.cfg.Storage.SQLitePath))
		return store, nil
	}

	c.logger.Info("using in-memory thread cache")
	return inmemory.NewStore(), nil
}

func (c *ServeCommander) createPublisher() (eventstream.Publisher, error) {
	switch c.cfg.EventStream.Provider {
	case "", "nop":
		return nop.NewPublisher(), nil
	case "kafka":
		var brokers []string
		for _, broker := range strings.Split(c.cfg.EventStream.Brokers, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				brokers = append(brokers, broker)
			}
		}
		publisher, err := kafka.NewPublisher(brokers, c.cfg.EventStream.Topic)
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		c.logger.Info("publishing turn events to kafka",
			zap.Strings("brokers", brokers),
			zap.String("topic", c.cfg.EventStream.Topic),
		)
		return publisher, nil
	default:
		return nil, fmt.Errorf("unknown event stream provider: %q", c.cfg.EventStream.Provider)
	}
}
