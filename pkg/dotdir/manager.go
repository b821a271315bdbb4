// Package dotdir manages the .floe/ and ~/.floe directories.
//
// The session state represents the agent and conversation thread the user last
// chatted with, so a new chat session can resume where the previous one left
// off. The state is persisted as a JSON file in the ~/.floe/ directory.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the floe directory.
	dirName = ".floe"

	// logFileName is the server log file written by "floe serve" and
	// followed by "floe logs".
	logFileName = "floe.log"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .floe/ directory.
// Order of precedence is as follows:
//  1. Provided override
//  2. Local ./.floe/ dir
//  3. Home ~/.floe/ dir
//  4. If none found, attempt to create ~/.floe/ dir
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, dirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating floe directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// LogPath returns the absolute path of the server log file in the
// resolved .floe/ directory.
func (m *Manager) LogPath(overrideDir string) (string, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, logFileName), nil
}

// localDirExists checks whether a .floe/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}
