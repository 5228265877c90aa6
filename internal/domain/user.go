package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role es el conjunto cerrado de roles de cuenta.
type Role string

const (
	RoleUser   Role = "user"
	RoleVendor Role = "vendor"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleVendor, RoleAdmin:
		return true
	}
	return false
}

// FederatedIdentity vincula la cuenta con un proveedor externo (Google).
type FederatedIdentity struct {
	Provider       string `json:"Provider" bson:"provider"`
	ProviderUserID string `json:"ProviderUserID" bson:"provider_user_id"`
	ProviderToken  string `json:"-" bson:"provider_token,omitempty"`
}

// User es la única entidad persistente del servicio.
type User struct {
	ID                     string             `json:"ID" bson:"_id"`
	Name                   string             `json:"Name" bson:"name"`
	Email                  string             `json:"Email" bson:"email"`
	PasswordHash           string             `json:"-" bson:"password_hash"`
	Phone                  string             `json:"Phone,omitempty" bson:"phone,omitempty"`
	Role                   Role               `json:"Role" bson:"role"`
	EmailVerified          bool               `json:"EmailVerified" bson:"email_verified"`
	VerificationCode       *string            `json:"-" bson:"verification_code,omitempty"`
	PasswordResetCode      *string            `json:"-" bson:"password_reset_code,omitempty"`
	PasswordResetExpiresAt *time.Time         `json:"-" bson:"password_reset_expires_at,omitempty"`
	FederatedIdentity      *FederatedIdentity `json:"FederatedIdentity,omitempty" bson:"federated_identity,omitempty"`
	ProfilePictureURL      string             `json:"ProfilePicture,omitempty" bson:"profile_picture_url,omitempty"`
	CreatedAt              time.Time          `json:"CreatedAt" bson:"created_at"`
	UpdatedAt              time.Time          `json:"UpdatedAt" bson:"updated_at"`
	LastLoginAt            *time.Time         `json:"LastLoginAt,omitempty" bson:"last_login_at,omitempty"`
}

// NewUser arma un usuario con los valores por defecto explícitos.
func NewUser(name, email, passwordHash string, now time.Time) User {
	now = now.UTC()
	return User{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(name),
		Email:         NormalizeEmail(email),
		PasswordHash:  passwordHash,
		Role:          RoleUser,
		EmailVerified: false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// NormalizeEmail aplica trim y minúsculas, la forma canónica usada como clave única.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ResetCodeOutstanding indica si hay un código de reseteo sin vencer en now.
func (u User) ResetCodeOutstanding(now time.Time) bool {
	if u.PasswordResetCode == nil || u.PasswordResetExpiresAt == nil {
		return false
	}
	return u.PasswordResetExpiresAt.After(now)
}

// ResetCodeExpired es true desde el instante de vencimiento inclusive.
func (u User) ResetCodeExpired(now time.Time) bool {
	if u.PasswordResetExpiresAt == nil {
		return true
	}
	return !now.Before(*u.PasswordResetExpiresAt)
}
