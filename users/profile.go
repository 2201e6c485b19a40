package users

// Profile is the identity of a signed-in student as derived from the provider's
// user-info response. It is copied by value into every session; there is no user table.
type Profile struct {
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	ID        string  `json:"id"`
	AvatarURL *string `json:"avatar_url"`
}

// Subject identifies the profile owner on refresh tokens and access tokens.
func (p Profile) Subject() string {
	return p.Email
}
