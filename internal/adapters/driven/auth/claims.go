package auth

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Application roles that allow the syncDevice action.
const (
	RolePrivilegedOperations = "DeviceManagementManagedDevices.PrivilegedOperations.All"
	RoleReadWrite            = "DeviceManagementManagedDevices.ReadWrite.All"
)

// SyncRoles lists the roles accepted for triggering device syncs.
var SyncRoles = []string{RolePrivilegedOperations, RoleReadWrite}

// Claims is the subset of access-token claims used for auditing and
// permission checks.
type Claims struct {
	AppID     string
	TenantID  string
	Subject   string
	Roles     []string
	ExpiresAt time.Time
}

// Principal identifies the caller as appid@tenant, falling back to the subject.
func (c *Claims) Principal() string {
	id := c.AppID
	if id == "" {
		id = c.Subject
	}
	if c.TenantID != "" && id != "" {
		return id + "@" + c.TenantID
	}
	return id
}

// HasAnyRole returns true if the token grants at least one of roles.
func (c *Claims) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if slices.Contains(c.Roles, r) {
			return true
		}
	}
	return false
}

// ParseClaims reads claims from a JWT access token without verifying its
// signature. It returns false for opaque (non-JWT) tokens.
func ParseClaims(token string) (*Claims, bool) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return nil, false
	}

	c := &Claims{
		AppID:    stringClaim(mc, "appid"),
		TenantID: stringClaim(mc, "tid"),
		Subject:  stringClaim(mc, "sub"),
	}
	if c.AppID == "" {
		c.AppID = stringClaim(mc, "azp")
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if raw, ok := mc["roles"].([]any); ok {
		for _, r := range raw {
			if s, ok := r.(string); ok {
				c.Roles = append(c.Roles, s)
			}
		}
	}
	return c, true
}

func stringClaim(mc jwt.MapClaims, key string) string {
	s, _ := mc[key].(string)
	return s
}
