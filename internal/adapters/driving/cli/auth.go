package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/intunesync/internal/core/domain"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Check API authentication",
}

var authCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Acquire a session and show who it belongs to",
	Long: `Acquires a session with the configured credentials, prints the
principal and granted roles, and releases it. No device is touched.`,
	Args: cobra.NoArgs,
	RunE: runAuthCheck,
}

func init() {
	authCmd.AddCommand(authCheckCmd)
	rootCmd.AddCommand(authCmd)
}

func runAuthCheck(cmd *cobra.Command, _ []string) error {
	if deviceService == nil {
		return errors.New("device service not configured")
	}

	info, err := deviceService.Whoami(cmd.Context())
	switch {
	case errors.Is(err, domain.ErrAuthRequired):
		return fmt.Errorf("%w\nSet graph.tenant_id, graph.client_id and run 'intunesync config set-secret',\n"+
			"or provide INTUNESYNC_ACCESS_TOKEN", err)
	case err != nil:
		return remoteError("authentication failed", err)
	}

	st := outputStyles(cmd)
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, st.Success.Render("Authenticated"))
	fmt.Fprintln(out, st.Label.Render("Principal")+info.Principal)
	fmt.Fprintln(out, st.Label.Render("Method")+info.Method.Description())
	roles := "(not reported)"
	if len(info.Roles) > 0 {
		roles = strings.Join(info.Roles, ", ")
	}
	fmt.Fprintln(out, st.Label.Render("Roles")+roles)
	return nil
}
