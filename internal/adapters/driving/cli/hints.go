package cli

import (
	"fmt"

	"github.com/custodia-labs/intunesync/internal/adapters/driven/auth"
	"github.com/custodia-labs/intunesync/internal/adapters/driven/graph"
)

// graphHint suggests the next step for Graph statuses an admin can act on.
func graphHint(err error) string {
	switch {
	case graph.IsUnauthorized(err):
		return "Credentials were rejected; check them with 'intunesync auth check'."
	case graph.IsForbidden(err):
		return "The app registration needs the " + auth.RolePrivilegedOperations +
			" application permission with admin consent."
	case graph.IsNotFound(err):
		return "The device-management endpoint was not found; check graph.base_url."
	case graph.IsRateLimited(err):
		return "Graph is throttling requests; raise sync.delay_ms and try again later."
	}
	return ""
}

// remoteError wraps err with prefix and appends a hint line when one applies.
func remoteError(prefix string, err error) error {
	if hint := graphHint(err); hint != "" {
		return fmt.Errorf("%s: %w\n%s", prefix, err, hint)
	}
	return fmt.Errorf("%s: %w", prefix, err)
}
