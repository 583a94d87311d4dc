package domain

// Identity is the result of authenticating a credential.
//
// A support identity carries no data of its own. ActingUserID names the user
// whose data the agent is viewing and is required for support identities.
type Identity struct {
	UserID       string
	IsSupport    bool
	ActingUserID string
}

// SubjectUserID returns the user whose data this identity reads by default.
func (i Identity) SubjectUserID() string {
	if i.IsSupport {
		return i.ActingUserID
	}
	return i.UserID
}

// CanActFor reports whether the identity may read data owned by userID.
func (i Identity) CanActFor(userID string) bool {
	if userID == "" {
		return false
	}
	if i.IsSupport {
		return i.ActingUserID == userID
	}
	return i.UserID == userID
}

// Credential is what a client presents to authenticate.
type Credential struct {
	Token         string
	SupportUserID string
}
