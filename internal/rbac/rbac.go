package rbac

type Role string
type Action string

const (
	RoleEditor    Role = "editor"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

const (
	ActionRead    Action = "read"
	ActionSubmit  Action = "submit"
	ActionApprove Action = "approve"
	ActionAdmin   Action = "admin"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleModerator:
		return action == ActionRead || action == ActionSubmit || action == ActionApprove
	case RoleEditor:
		return action == ActionRead || action == ActionSubmit
	default:
		return false
	}
}

// CanModerate reports whether the role may act on corrections it did not
// author: approving them, or revising another author's pending proposal.
func CanModerate(role Role) bool {
	return role == RoleAdmin || role == RoleModerator
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleEditor, RoleModerator, RoleAdmin:
		return Role(role)
	default:
		return RoleEditor
	}
}
