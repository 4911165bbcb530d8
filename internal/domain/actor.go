package domain

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string
	Staff  bool
}

func (a Actor) CanAccess(ownerID string) bool {
	return a.Staff || a.UserID == ownerID
}
