package rbac

type Role string
type Action string

const (
	RoleMember Role = "member"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

const (
	ActionRead    Action = "read"
	ActionComment Action = "comment"
	ActionSubmit  Action = "submit"
	ActionDecide  Action = "decide"
	ActionPublish Action = "publish"
	ActionAdmin   Action = "admin"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin:
		return true
	case RoleEditor:
		return action == ActionRead || action == ActionComment || action == ActionSubmit || action == ActionDecide || action == ActionPublish
	case RoleMember:
		return action == ActionRead || action == ActionComment || action == ActionSubmit
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleMember, RoleEditor, RoleAdmin:
		return Role(role)
	default:
		return RoleMember
	}
}
