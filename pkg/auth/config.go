package auth

import "github.com/frostpeakco/floe/pkg/config"

// FromConfig builds the standard token resolution chain from a loaded
// configuration: configured OAuth token, then the container session
// token file, then the configured PAT.
func FromConfig(cfg *config.Config) TokenSource {
	return NewChain(
		NewStatic(cfg.Snowflake.OAuthToken, TypeOAuth),
		NewSessionTokenFile(),
		NewStatic(cfg.Snowflake.PAT, TypePAT),
	)
}
