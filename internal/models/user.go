package models

import "time"

// Role is a flat, non-hierarchical user role.
type Role string

const (
	RoleUser    Role = "user"
	RolePending Role = "pending"
	RoleAuthor  Role = "author"
	RoleAdmin   Role = "admin"
)

// ValidRole reports whether r is one of the four defined roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RolePending, RoleAuthor, RoleAdmin:
		return true
	}
	return false
}

// UserModel represents a registered account.
type UserModel struct {
	Base
	Username      string     `json:"username"        gorm:"uniqueIndex;not null"`
	Email         string     `json:"email"           gorm:"uniqueIndex;not null"`
	Password      string     `json:"-"               gorm:"not null"`
	Name          string     `json:"name"`
	Avatar        string     `json:"avatar"`
	Bio           string     `json:"bio"`
	Role          Role       `json:"role"            gorm:"default:pending;index"`
	EmailVerified bool       `json:"email_verified"  gorm:"default:false"`
	LastLoginTime *time.Time `json:"last_login_time"`
	LastLoginIP   string     `json:"last_login_ip"`
	LastActiveAt  *time.Time `json:"last_active_at"`
}

func (UserModel) TableName() string { return "users" }

// VerificationState tracks the lifecycle of an email verification token.
// A token leaves "pending" exactly once.
type VerificationState string

const (
	VerificationPending  VerificationState = "pending"
	VerificationVerified VerificationState = "verified"
	VerificationExpired  VerificationState = "expired"
)

// VerificationTokenModel is a bounded-lifetime email verification token.
type VerificationTokenModel struct {
	Base
	UserID    string            `json:"-"          gorm:"index;not null"`
	Token     string            `json:"-"          gorm:"uniqueIndex;not null"`
	State     VerificationState `json:"state"      gorm:"default:pending;index"`
	ExpiresAt time.Time         `json:"expires_at"`
}

func (VerificationTokenModel) TableName() string { return "verification_tokens" }
