package identity

import "time"

// User represents a registered storefront customer.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Registration request structure.
type Registration struct {
	Name     string
	Email    string
	Password string
}

// Credentials request structure.
type Credentials struct {
	Email    string
	Password string
}

// Profile holds the mutable user attributes.
type Profile struct {
	Name  string
	Email string
}
