// Package logscmder provides the logs command for following server logs.
package logscmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/frostpeakco/floe/pkg/dotdir"
)

const logsLongDesc string = `Follow the floe server log.

The serve command appends its log output to floe.log in the .floe/
directory. This command streams that file to stdout, following new
writes as they happen (like tail -f).

Examples:
  floe logs`

const logsShortDesc string = "Follow the floe server log"

func NewLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: logsShortDesc,
		Long:  logsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runLogs(cmd.Context(), configDir, os.Stdout)
		},
	}

	return cmd
}

func runLogs(ctx context.Context, configDir string, out io.Writer) error {
	logPath, err := dotdir.NewManager().LogPath(configDir)
	if err != nil {
		return err
	}

	if _, err := os.Stat(logPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return errors.New("no server logs found")
		}
		return fmt.Errorf("checking log file: %w", err)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return followLog(ctx, logPath, out)
}

// followLog streams the file at path to out, printing existing content
// first and then new writes as they arrive.
func followLog(ctx context.Context, path string, out io.Writer) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer file.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating log watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching log dir: %w", err)
	}

	buf := make([]byte, 4096)
	readAvailable := func() error {
		for {
			n, err := file.Read(buf)
			if n > 0 {
				if _, writeErr := out.Write(buf[:n]); writeErr != nil {
					return writeErr
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
		}
	}

	if err := readAvailable(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := readAvailable(); err != nil {
				return err
			}
		case err := <-watcher.Errors:
			return fmt.Errorf("log watcher error: %w", err)
		}
	}
}
