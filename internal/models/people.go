package models

// Contact is an entry of the corporate phone book
type Contact struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email,omitempty" validate:"omitempty,email"`
	Phone      string `json:"phone,omitempty"`
	Department string `json:"department,omitempty"`
	Role       string `json:"role,omitempty"`
	Extension  string `json:"extension,omitempty"`
}

// Collaborator is an employee known to the portal. FAB messages reference it by id.
type Collaborator struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Department string `json:"department,omitempty"`
	Role       string `json:"role,omitempty"`
	AvatarURL  string `json:"avatarUrl,omitempty" validate:"omitempty,url"`
	Active     bool   `json:"active"`
}

// User is a portal login account (collection "users")
type User struct {
	ID           string `json:"id,omitempty"`
	Email        string `json:"email" validate:"required,email"`
	PasswordHash string `json:"passwordHash,omitempty"`
	Role         string `json:"role" validate:"omitempty,oneof=admin user"`
	DisplayName  string `json:"displayName,omitempty"`
}

// PublicUser is the API view of a user
type PublicUser struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	DisplayName string `json:"displayName,omitempty"`
	IsAdmin     bool   `json:"isAdmin"`
}
