package authz

// EntityType enumerates the entity scopes the authorization gate understands.
// Dispatch over this type is exhaustive: a switch with no default-allow means
// an unknown scope can never silently pass a check.
type EntityType int

const (
	EntityProject EntityType = iota
	EntityTeam
	EntityTask
	EntityAppointment
)

// String returns the canonical lower-case name of the entity type.
func (e EntityType) String() string {
	switch e {
	case EntityProject:
		return "project"
	case EntityTeam:
		return "team"
	case EntityTask:
		return "task"
	case EntityAppointment:
		return "appointment"
	default:
		return "unknown"
	}
}

// Mode selects how the gate evaluates a requirement: by membership role or by
// the existence of an assignment/participation row.
type Mode int

const (
	// ModeRole checks the user's membership role against an allowed set.
	ModeRole Mode = iota
	// ModeAssignment checks for an assignment/participation row; assignment
	// is binary, there is no role gradation.
	ModeAssignment
)

// Requirement is the declarative per-route binding fed into the gate: which
// entity scope to check, where the entity id lives in the request, the roles
// that may pass, and the evaluation mode.
type Requirement struct {
	Entity       EntityType
	IDParam      string
	AllowedRoles []Role
	Mode         Mode
}
