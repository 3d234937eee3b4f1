package model

import (
	"time"

	"github.com/google/uuid"
)

// Role controls what a user may do. All accounts are created with RoleUser;
// no API currently promotes a user to RoleAdmin.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// CredentialType discriminates how an account authenticates.
type CredentialType string

const (
	// CredentialPassword marks an account that signs in with email/password.
	CredentialPassword CredentialType = "password"
	// CredentialProvider marks an account created through an external
	// identity provider and carrying no local password.
	CredentialProvider CredentialType = "provider"
)

// Credential is a tagged variant: password-based accounts hold a one-way
// hash, provider-based accounts hold the provider's stable subject id.
// An account that has linked a provider to an existing password keeps both.
type Credential struct {
	Type         CredentialType
	PasswordHash []byte
	ProviderID   string
}

// PasswordCredential builds a password-based credential.
func PasswordCredential(hash []byte) Credential {
	return Credential{Type: CredentialPassword, PasswordHash: hash}
}

// ProviderCredential builds a provider-based credential.
func ProviderCredential(providerID string) Credential {
	return Credential{Type: CredentialProvider, ProviderID: providerID}
}

// User represents an account able to register for events.
type User struct {
	ID         uuid.UUID  `json:"id"`
	Email      string     `json:"email"`
	FirstName  string     `json:"first_name"`
	LastName   string     `json:"last_name"`
	Role       Role       `json:"role"`
	Credential Credential `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
}

// FullName returns the display name embedded in issued tokens.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Identity is the set of verified claims carried by an identity token.
type Identity struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  Role      `json:"role"`
}
