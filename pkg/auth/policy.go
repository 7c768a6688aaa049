package auth

// CanAccessTask reports whether the user may read or modify a task owned
// by ownerID. Owners and admins may; everyone else may not.
func CanAccessTask(user *User, ownerID int64) bool {
	if user == nil {
		return false
	}
	return user.IsAdmin || user.ID == ownerID
}

// CheckSelfTarget returns ErrSelfOperation when an admin targets their own
// account with a destructive account operation (disable, demote, delete).
func CheckSelfTarget(actor *User, targetID int64) error {
	if actor.ID == targetID {
		return ErrSelfOperation
	}
	return nil
}
