package domain

// Identity is the authenticated subject resolved from a request's token.
type Identity struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
}

func (i Identity) IsZero() bool {
	return i.UserID == ""
}

// Decision is the outcome of an ownership check.
type Decision int

const (
	Denied Decision = iota
	Allowed
)

// Authorize confirms that the resource owned by ownerID belongs to identity.
func Authorize(identity Identity, ownerID string) Decision {
	if identity.IsZero() || ownerID == "" {
		return Denied
	}
	if identity.UserID != ownerID {
		return Denied
	}
	return Allowed
}
