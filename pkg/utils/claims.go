package utils

// Locals / context key under which the security middleware stores the claims.
const UserClaimsKey = "userClaims"

// Well-known roles handed over by the upstream security proxy.
const (
	RoleReportsAdmin = "ROLE_REPORTS_ADMIN"
	RoleSuperuser    = "ROLE_SUPERUSER"
)

// UserClaims is the identity extracted from the trusted proxy headers.
type UserClaims struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// HasRole reports whether the claims carry the given role.
func (c *UserClaims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// EffectivePrincipals returns every principal the user acts as: the
// username itself plus all proxy-assigned roles.
func (c *UserClaims) EffectivePrincipals() []string {
	principals := make([]string, 0, len(c.Roles)+1)
	if c.Username != "" {
		principals = append(principals, c.Username)
	}
	principals = append(principals, c.Roles...)
	return principals
}
