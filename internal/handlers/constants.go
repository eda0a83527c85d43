package handlers

const (
	RequestIDHeader = "X-Request-ID"

	maxBodyBytes = 1 << 20

	ErrInvalidJSON         = "Invalid JSON body"
	ErrInvalidID           = "Invalid id"
	ErrInvalidLimit        = "limit must be a positive integer"
	ErrUnauthorized        = "Unauthorized"
	ErrInvalidCredentials  = "Invalid or expired token"
	ErrBusy                = "Another request for this user is in progress, retry shortly"
	ErrRateLimited         = "Too many requests"
	ErrInternalServerError = "Internal server error"
)
