// Package authcmder provides the auth command for storing Snowflake credentials.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/frostpeakco/floe/pkg/cliui"
	"github.com/frostpeakco/floe/pkg/config"
)

// tokenKinds maps the CLI token kind argument to its config key.
var tokenKinds = map[string]string{
	"pat":   "snowflake.pat",
	"oauth": "snowflake.oauth_token",
}

const authLongDesc string = `Store Snowflake credentials for the Cortex Agents API.

Tokens are stored in config.toml in the .floe/ directory and used as
bearer tokens on API calls. When both are set, the OAuth token is
preferred over the PAT.

Supported token kinds: pat, oauth

Examples:
  floe auth pat                  Prompt for a programmatic access token
  floe auth oauth                Prompt for an OAuth access token
  floe auth --remove pat         Remove the stored PAT
  echo $TOKEN | floe auth pat    Pipe the token from stdin`

const authShortDesc string = "Store Snowflake credentials"

func NewAuthCmd() *cobra.Command {
	var removeFlag string

	cmd := &cobra.Command{
		Use:   "auth [kind]",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			if removeFlag != "" {
				return runRemove(removeFlag, configDir)
			}
			if len(args) == 0 {
				return fmt.Errorf("token kind argument required\n\nSupported kinds: %s",
					strings.Join(supportedKinds(), ", "))
			}
			return runAuth(args[0], configDir)
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return supportedKinds(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().StringVar(&removeFlag, "remove", "", "Remove the stored token of a kind (pat, oauth)")

	return cmd
}

func supportedKinds() []string {
	return []string{"pat", "oauth"}
}

func runAuth(kind, configDir string) error {
	kind = strings.ToLower(strings.TrimSpace(kind))

	key, ok := tokenKinds[kind]
	if !ok {
		return fmt.Errorf("unsupported token kind: %q\n\nSupported kinds: %s",
			kind, strings.Join(supportedKinds(), ", "))
	}

	token, err := readToken(kind)
	if err != nil {
		return err
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("token cannot be empty")
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfger.SetConfigValue(key, token); err != nil {
		return err
	}

	fmt.Printf("\n  %s Stored %s token %s\n\n",
		cliui.SuccessMark,
		cliui.NameStyle.Render(kind),
		cliui.DimStyle.Render("("+key+")"),
	)

	return nil
}

func runRemove(kind, configDir string) error {
	kind = strings.ToLower(strings.TrimSpace(kind))

	key, ok := tokenKinds[kind]
	if !ok {
		return fmt.Errorf("unsupported token kind: %q\n\nSupported kinds: %s",
			kind, strings.Join(supportedKinds(), ", "))
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfger.SetConfigValue(key, ""); err != nil {
		return err
	}

	fmt.Printf("\n  %s Removed %s token.\n\n", cliui.SuccessMark, cliui.NameStyle.Render(kind))

	return nil
}

// readToken reads a token from stdin. If stdin is a pipe, it reads the
// first line. Otherwise, it prompts interactively with hidden input.
func readToken(kind string) (string, error) {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return "", fmt.Errorf("checking stdin: %w", err)
	}

	// Piped input
	if (fi.Mode() & os.ModeCharDevice) == 0 {
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			return scanner.Text(), nil
		}
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return "", errors.New("no input received on stdin")
	}

	// Interactive terminal
	fmt.Printf("Enter %s token: ", kind)

	tokenBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println() // newline after hidden input
	if err != nil {
		return "", fmt.Errorf("reading token: %w", err)
	}

	return string(tokenBytes), nil
}
