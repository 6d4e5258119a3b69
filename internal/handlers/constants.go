package handlers

const (
	maxJSONBody = 1 << 20

	ErrInvalidJSON         = "Invalid JSON body"
	ErrInvalidID           = "Invalid ID"
	ErrUnauthorized        = "Could not validate credentials"
	ErrForbidden           = "Not permitted for this role"
	ErrTooManyRequests     = "Too many requests, please try again later"
	ErrInternalServerError = "Internal server error"
)
