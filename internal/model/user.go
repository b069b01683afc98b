package model

import "time"

const (
	RoleAdmin      = "admin"
	RoleEditor     = "editor"
	RoleSubscriber = "subscriber"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type AuthClaims struct {
	UserID      string `json:"sub"`
	Username    string `json:"username"`
	DisplayName string `json:"name"`
	Role        string `json:"role"`
	Type        string `json:"typ"`
	TokenID     string `json:"jti"`
}

func (c *AuthClaims) Actor() Actor {
	if c == nil {
		return Actor{}
	}

	name := c.DisplayName
	if name == "" {
		name = c.Username
	}

	return Actor{ID: c.UserID, DisplayName: name, Role: c.Role}
}

type AuthUser struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

type TokenPair struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int64    `json:"expires_in"`
	User         AuthUser `json:"user"`
}
