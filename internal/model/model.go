package model

import "time"

// SignUpRequest is the payload for creating a password-based account.
type SignUpRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
}

// SignInRequest is the payload for email/password sign-in.
type SignInRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// EventRequest is the payload for creating or replacing an event.
type EventRequest struct {
	Title       string    `json:"title" validate:"required"`
	Date        time.Time `json:"date" validate:"required"`
	Location    string    `json:"location" validate:"required"`
	Description string    `json:"description" validate:"required"`
	Capacity    int       `json:"capacity" validate:"required,min=1"`
}

// TokenResponse carries a freshly issued identity token.
type TokenResponse struct {
	Token string `json:"token"`
}

// ErrorResponse is the standard JSON error envelope. Code discriminates the
// failure kind so clients can react to it without parsing the message.
type ErrorResponse struct {
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}
