package model

// Actor is the authenticated identity performing an operation.  It is
// passed explicitly into every booking and cancellation call so the
// workflow can re-check capability itself instead of trusting whatever
// route guard let the request through.
type Actor struct {
	ID   uint64
	Role Role
}

// Authenticated reports whether the actor carries a user id.
func (a Actor) Authenticated() bool { return a.ID != 0 }

// Is reports whether the actor holds one of the given roles.
func (a Actor) Is(roles ...Role) bool {
	if !a.Authenticated() {
		return false
	}
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// CanManage reports whether the actor may manage events and override
// ticket ownership.
func (a Actor) CanManage() bool { return a.Is(RoleOrganizer, RoleAdministrator) }
