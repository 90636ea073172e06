package model

// Role is the authenticated user's role. It decides which complaints the
// API returns and whether status updates are allowed.
type Role string

const (
	RoleEmployee Role = "Employee"
	RoleManager  Role = "Manager"
	RoleAdmin    Role = "Admin"
)

// CanManage reports whether the role may review and update complaints.
func (r Role) CanManage() bool {
	return r == RoleManager || r == RoleAdmin
}

// Session is the authenticated user returned by the auth provider.
type Session struct {
	Token        string `json:"token"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         Role   `json:"role"`
	DepartmentID int64  `json:"departmentId"`
}

// Valid reports whether the session carries a usable token.
func (s *Session) Valid() bool {
	return s != nil && s.Token != ""
}
