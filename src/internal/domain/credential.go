package domain

import "time"

type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

type Credential struct {
	Username     string
	PasswordHash string
	Role         Role
	AccountID    string
	CreatedAt    time.Time
}
