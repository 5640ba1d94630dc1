package user

import "time"

// Platform roles. The server is the real authority on these; the client only
// reads them for UI gating.
const (
	RoleSystemAdmin = "system_admin"
	RoleSchoolAdmin = "school_admin"
	RoleStudent     = "student"
	RoleViewer      = "viewer"
	RoleScout       = "scout"
)

// User is the canonical identity record exchanged between the identity
// endpoints and the session coordinator. Optional fields stay empty/false
// when the server omits them.
type User struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	Email                 string `json:"email"`
	Role                  string `json:"role"`
	SchoolID              string `json:"schoolId,omitempty"`
	ProfilePicURL         string `json:"profilePicUrl,omitempty"`
	RequiresPasswordReset bool   `json:"requiresPasswordReset,omitempty"`
	IsOneTimePassword     bool   `json:"isOneTimePassword,omitempty"`
}

// Profile is the sub-object login/signup responses may carry alongside the
// base user. Its fields overlay the base fields when present.
type Profile struct {
	SchoolID      string `json:"schoolId,omitempty"`
	ProfilePicURL string `json:"profilePicUrl,omitempty"`
}

// MergeProfile overlays profile fields onto the base user record, producing
// the shape the session cache stores. Profile values win when non-empty.
func MergeProfile(u User, p *Profile) User {
	if p == nil {
		return u
	}

	if p.SchoolID != "" {
		u.SchoolID = p.SchoolID
	}

	if p.ProfilePicURL != "" {
		u.ProfilePicURL = p.ProfilePicURL
	}

	return u
}

// Account is the server-side row behind a User: credentials and status flags
// the identity record never exposes.
type Account struct {
	User
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Deactivated  bool      `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
