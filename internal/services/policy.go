package services

// Action is something an actor attempts on a user account.
type Action int

const (
	ActionViewUser Action = iota
	ActionEditUser
	ActionChangeRole
	ActionSetPassword
	ActionListUsers
	ActionCreateUser
	ActionDeleteUser
	ActionRevokeSessions
)

// Authorize is the single access rule for user resources: owners and admins
// may view and edit an account, everything else is admin-only, and nobody
// deletes their own account.
func Authorize(actor *Session, action Action, targetID uint) error {
	if actor == nil {
		return notAuthenticated("no_session")
	}
	switch action {
	case ActionViewUser, ActionEditUser:
		if actor.UserID == targetID || actor.IsAdmin() {
			return nil
		}
		return Fail(ErrForbidden, "Forbidden")
	case ActionDeleteUser:
		if !actor.IsAdmin() {
			return Fail(ErrForbidden, "Forbidden - Admin access required")
		}
		if actor.UserID == targetID {
			return Fail(ErrSelfDelete, "Cannot delete your own account")
		}
		return nil
	default:
		if actor.IsAdmin() {
			return nil
		}
		return Fail(ErrForbidden, "Forbidden - Admin access required")
	}
}
