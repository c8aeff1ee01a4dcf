package models

// DefaultRole is sent as the role query parameter when no admin role is known.
const DefaultRole = "RAR"

// Actor is the administrator performing an action. It is passed explicitly into
// every mutating call and ends up in the server-side audit trail.
type Actor struct {
	ID   string `json:"admin_id" yaml:"admin_id" validate:"required"`
	Name string `json:"admin_name" yaml:"name"`
	Role string `json:"admin_role" yaml:"role" validate:"required"`
}

func (a Actor) Validate() error {
	return validateStruct(a)
}

// RoleOrDefault returns the actor role, falling back to DefaultRole.
func (a Actor) RoleOrDefault() string {
	if a.Role == "" {
		return DefaultRole
	}
	return a.Role
}
