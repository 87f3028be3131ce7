package handlers

const (
	ErrInvalidJSON         = "Invalid JSON body"
	ErrInvalidID           = "Invalid ID"
	ErrUnauthorized        = "Unauthorized"
	ErrForbidden           = "Forbidden"
	ErrInternalServerError = "Internal server error"

	// maxJSONBody caps request bodies that are decoded as JSON
	maxJSONBody = 1 << 20
)
