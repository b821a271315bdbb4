// Package auth resolves bearer tokens for the Cortex Agents REST API.
//
// Token resolution follows a fixed priority: an OAuth token from the
// configuration, then a container session token mounted into the
// workload, then a programmatic access token. The session token file is
// re-read on every resolution because the platform rotates it.
package auth

import (
	"errors"
	"fmt"
)

// Token type identifiers sent in the X-Snowflake-Authorization-Token-Type
// header alongside the bearer token.
const (
	TypeOAuth = "OAUTH"
	TypePAT   = "PROGRAMMATIC_ACCESS_TOKEN"
)

// ErrNoToken is returned when no source in a chain produced a token.
var ErrNoToken = errors.New("no authentication token available")

// Token is a resolved credential ready for use in request headers.
type Token struct {
	// Value is the raw token, without any Bearer prefix.
	Value string

	// Type is the token type header value (TypeOAuth or TypePAT).
	Type string
}

// TokenSource produces a Token. Implementations return ErrNoToken when
// they have nothing to offer, allowing chains to fall through.
type TokenSource interface {
	Token() (*Token, error)
}

// Static is a TokenSource backed by a fixed value.
type Static struct {
	value     string
	tokenType string
}

// NewStatic returns a source that always yields the given token.
// An empty value yields ErrNoToken.
func NewStatic(value, tokenType string) *Static {
	return &Static{value: value, tokenType: tokenType}
}

func (s *Static) Token() (*Token, error) {
	if s.value == "" {
		return nil, ErrNoToken
	}
	return &Token{Value: s.value, Type: s.tokenType}, nil
}

// Chain tries each source in order and returns the first token produced.
type Chain struct {
	sources []TokenSource
}

// NewChain returns a source that falls through the given sources in order.
func NewChain(sources ...TokenSource) *Chain {
	return &Chain{sources: sources}
}

func (c *Chain) Token() (*Token, error) {
	for _, src := range c.sources {
		tok, err := src.Token()
		if err != nil {
			if errors.Is(err, ErrNoToken) {
				continue
			}
			return nil, fmt.Errorf("resolving token: %w", err)
		}
		return tok, nil
	}
	return nil, ErrNoToken
}
