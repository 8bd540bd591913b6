package models

import "time"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleMember
}

// Identity is the claim an operation is attempted under. It is produced by
// the request layer and never by the lifecycle engine.
type Identity struct {
	ID   string
	Role Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

type User struct {
	Id        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	Email     string    `json:"email" yaml:"email"`
	Role      Role      `json:"role" yaml:"role"`
	CreatedAt time.Time `json:"createdAt" yaml:"-"`
}

// UserRef is the display form of an identity reference.
type UserRef struct {
	Id    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}
