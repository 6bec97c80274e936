package models

// Role is the membership role a user holds within a project or team scope.
// Project Managers are a strict superset capability over Team Members within
// the same scope; the inheritance rule lives in the authz package.
type Role string

const (
	RoleProjectManager Role = "Project Manager"
	RoleTeamMember     Role = "Team Member"
)

// Valid reports whether the role is one of the two supported values.
func (r Role) Valid() bool {
	return r == RoleProjectManager || r == RoleTeamMember
}

// ProjectMembership assigns a role to a user within a project. The composite
// unique index guarantees at most one role per (project, user) pair.
type ProjectMembership struct {
	BaseModel

	ProjectID string `gorm:"type:uuid;not null;uniqueIndex:idx_project_user" json:"project_id"`
	UserID    string `gorm:"type:uuid;not null;uniqueIndex:idx_project_user" json:"user_id"`
	Role      Role   `gorm:"type:text;not null" json:"role"`

	Project *Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"project,omitempty"`
	User    *User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

// TeamMembership assigns a role to a user within a team, with the same
// uniqueness invariant as ProjectMembership scoped to the team.
type TeamMembership struct {
	BaseModel

	TeamID string `gorm:"type:uuid;not null;uniqueIndex:idx_team_user" json:"team_id"`
	UserID string `gorm:"type:uuid;not null;uniqueIndex:idx_team_user" json:"user_id"`
	Role   Role   `gorm:"type:text;not null" json:"role"`

	Team *Team `gorm:"foreignKey:TeamID;constraint:OnDelete:CASCADE" json:"team,omitempty"`
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}
