package model

import "time"

// User is the local profile row kept alongside an identity held by the
// identity provider. ID is the provider's identity id.
//
// There is no password field: credentials live with the identity provider
// only and are never copied into the profile.
type User struct {
	ID        string    `json:"id"         db:"id"`
	Name      string    `json:"name"       db:"name"`
	Username  string    `json:"username"   db:"username"`
	Email     string    `json:"email"      db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Credential is an email/password identity managed by the built-in
// identity provider.
type Credential struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}
