package models

import "github.com/golang-jwt/jwt/v5"

// UserRole is the coarse role resolved by the upstream identity layer. The
// service trusts it; fine-grained case ownership is evaluated upstream.
type UserRole string

const (
	RoleOfficer      UserRole = "OFFICER"
	RoleInvestigator UserRole = "INVESTIGATOR"
	RoleSupervisor   UserRole = "SUPERVISOR"
	RoleAdmin        UserRole = "ADMIN"
)

// ElevatedRoles may delete and restore evidence.
var ElevatedRoles = []UserRole{RoleSupervisor, RoleAdmin}

// JWTClaims is the resolved identity attached to every request.
type JWTClaims struct {
	UserID    string   `json:"userId"`
	Role      UserRole `json:"role"`
	BadgeNo   string   `json:"badgeNo,omitempty"`
	StationID string   `json:"stationId,omitempty"`
	jwt.RegisteredClaims
}
