package provider

import (
	"encoding/json"
	"fmt"
)

// UserInfo is the subset of the provider's user-info response the service reads.
// GitHub fields come first; OIDC equivalents fill in when GitHub's are absent.
type UserInfo struct {
	Login     string `json:"login"`
	ID        any    `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`

	Subject           string `json:"sub"`
	PreferredUsername string `json:"preferred_username"`
	Picture           string `json:"picture"`
}

// Username is the provider login, falling back to the OIDC preferred username.
func (u *UserInfo) Username() string {
	if u.Login != "" {
		return u.Login
	}
	return u.PreferredUsername
}

// ExternalID renders the provider's user identifier as a string.
func (u *UserInfo) ExternalID() string {
	switch id := u.ID.(type) {
	case nil:
		return u.Subject
	case string:
		return id
	case json.Number:
		return id.String()
	default:
		return fmt.Sprint(id)
	}
}

// Avatar is the avatar URL, falling back to the OIDC picture claim.
func (u *UserInfo) Avatar() string {
	if u.AvatarURL != "" {
		return u.AvatarURL
	}
	return u.Picture
}
