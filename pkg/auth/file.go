package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// SessionTokenPath is where the platform mounts the rotating session
// token when running inside Snowpark Container Services.
const SessionTokenPath = "/snowflake/session/token"

// File is a TokenSource backed by a token file on disk. The file is
// read on every call so rotated tokens are picked up without restarts.
type File struct {
	path      string
	tokenType string
}

// NewFile returns a source reading the token from the given path.
func NewFile(path, tokenType string) *File {
	return &File{path: path, tokenType: tokenType}
}

// NewSessionTokenFile returns a source for the standard container
// session token mount.
func NewSessionTokenFile() *File {
	return NewFile(SessionTokenPath, TypeOAuth)
}

func (f *File) Token() (*Token, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("reading token file %s: %w", f.path, err)
	}

	value := strings.TrimSpace(string(data))
	if value == "" {
		return nil, ErrNoToken
	}

	return &Token{Value: value, Type: f.tokenType}, nil
}
