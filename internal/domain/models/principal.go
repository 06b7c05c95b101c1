package models

// Principal is the authenticated identity acting on a request, supplied by
// the authenticated-principal provider. Absence of a principal on a protected
// route is a 401.
type Principal struct {
	TenantID    string   `json:"tenant_id"`
	UserID      string   `json:"user_id"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// HasRole reports whether the principal carries the given role.
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}
