package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/intunesync/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage application settings",
	Long: `View and change settings stored in the config file.

Environment variables (INTUNESYNC_*, also read from .env) take precedence
over the file and are marked (env) in 'config show'.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Long: `Validates and stores one setting.

Keys:
  graph.tenant_id      Directory (tenant) ID
  graph.client_id      Application (client) ID
  graph.access_token   Pre-acquired bearer token (overrides client credentials)
  graph.base_url       API root (default https://graph.microsoft.com/v1.0)
  graph.authority_url  Identity provider root
  sync.delay_ms        Pause between sync calls, 0-10000
  sync.platforms       Comma separated platforms for 'sync all'
  audit.enabled        Record run history (true/false)
  watch.column         CSV column holding device names

Use 'config set-secret' for graph.client_secret.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configSetSecretCmd = &cobra.Command{
	Use:   "set-secret",
	Short: "Store the app registration client secret",
	Long: `Prompts for the client secret without echoing it.
When stdin is not a terminal the secret is read from its first line.`,
	Args: cobra.NoArgs,
	RunE: runConfigSetSecret,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetSecretCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	st := outputStyles(cmd)
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, st.Title.Render("Current Settings"))
	fmt.Fprintln(out, st.Muted.Render(settingsService.Path()))
	fmt.Fprintln(out)

	section := ""
	for _, key := range settingsService.Keys() {
		if s, _, _ := strings.Cut(key, "."); s != section {
			if section != "" {
				fmt.Fprintln(out)
			}
			section = s
			fmt.Fprintln(out, st.Subtitle.Render("["+section+"]"))
		}

		line := fmt.Sprintf("  %-20s %s", key, settingValue(settings, key))
		if envOverridden != nil && envOverridden(key) {
			line += " " + st.Muted.Render("(env)")
		}
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, st.Label.Render("Auth")+settings.Graph.AuthMethod().Description())
	if err := settings.Validate(); err != nil {
		fmt.Fprintln(out, st.Warning.Render(fmt.Sprintf("Warning: %v", err)))
	} else if !settings.Graph.IsConfigured() {
		fmt.Fprintln(out, st.Warning.Render("Credentials are not configured."))
	} else {
		fmt.Fprintln(out, st.Success.Render("Configuration is valid."))
	}
	return nil
}

// settingValue formats the current value of key for display.
// Secrets are masked.
func settingValue(s *domain.AppSettings, key string) string {
	switch key {
	case "graph.tenant_id":
		return orUnset(s.Graph.TenantID)
	case "graph.client_id":
		return orUnset(s.Graph.ClientID)
	case "graph.client_secret":
		return maskSecret(s.Graph.ClientSecret)
	case "graph.access_token":
		return maskSecret(s.Graph.AccessToken)
	case "graph.base_url":
		return s.Graph.BaseURL
	case "graph.authority_url":
		return s.Graph.AuthorityURL
	case "sync.delay_ms":
		return strconv.FormatInt(s.Sync.Delay.Milliseconds(), 10)
	case "sync.platforms":
		names := make([]string, len(s.Sync.Platforms))
		for i, p := range s.Sync.Platforms {
			names[i] = p.String()
		}
		return strings.Join(names, ", ")
	case "audit.enabled":
		return strconv.FormatBool(s.Audit.Enabled)
	case "watch.column":
		return s.Watch.Column
	}
	return ""
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		return err
	}

	cmd.Printf("Set %s\n", key)
	if envOverridden != nil && envOverridden(key) {
		cmd.Printf("Note: %s is also set in the environment, which takes precedence.\n", key)
	}
	return nil
}

func runConfigSetSecret(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if isTerminal(os.Stdin) {
		cmd.Print("Client secret: ")
	}
	secret := readPassword(cmd.InOrStdin())
	if isTerminal(os.Stdin) {
		cmd.Println()
	}

	if err := settingsService.SetClientSecret(secret); err != nil {
		return err
	}
	cmd.Printf("Client secret stored in %s\n", settingsService.Path())
	return nil
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword(in io.Reader) string {
	// Try to read password without echo
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(in)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskSecret(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
