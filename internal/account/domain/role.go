package domain

import "time"

// RoleType is the fixed role taxonomy. New installs are seeded with one role
// per type; registration assigns RoleTypeUser.
type RoleType string

const (
	RoleTypeAdmin RoleType = "ADMIN"
	RoleTypeUser  RoleType = "USER"
)

type Role struct {
	ID        string
	Type      RoleType
	CreatedAt time.Time
	UpdatedAt time.Time
}
