package model

import (
	"time"

	"assistant-chat/internal/domain"
)

const (
	RoleNameUser  = "user"
	RoleNameAdmin = "admin"
)

// User is the authenticated principal behind a session.
type User struct {
	ID           string            `json:"id"`
	Email        string            `json:"email"`
	Name         string            `json:"name"`
	Avatar       string            `json:"avatar,omitempty"`
	Applications map[string]string `json:"applications,omitempty"` // app id -> role
	TokenExpiry  time.Time         `json:"token_expiry,omitempty"`
}

func NewUser(id, email, name string) (*User, error) {
	if id == "" && email == "" {
		return nil, domain.ErrInvalidArgument
	}
	if name == "" {
		name = email
	}
	return &User{ID: id, Email: email, Name: name}, nil
}

func (u *User) IsZero() bool { return u == nil || (u.ID == "" && u.Email == "") }

func (u *User) Author() Author {
	if u == nil {
		return Author{}
	}
	return Author{Name: u.Name, Email: u.Email}
}

// HasRequiredPermissions reports whether u holds the user or admin role on appID.
func (u *User) HasRequiredPermissions(appID string) bool {
	if u == nil {
		return false
	}
	role := u.Applications[appID]
	return role == RoleNameUser || role == RoleNameAdmin
}
