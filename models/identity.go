package models

// Identity is the trusted caller identity attached by the auth middleware.
// Core operations receive it explicitly instead of digging it out of request
// state.
type Identity struct {
	UserID string
}
