package usecase

import "errors"

// Sentinel errors for use case layer
var (
	// Not found errors
	ErrConversationNotFound = errors.New("conversation not found")

	// Access control errors
	ErrAccessDenied = errors.New("access denied to conversation")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("operation not permitted for role")

	// Input errors
	ErrInvalidRequest = errors.New("invalid request")

	// Infrastructure errors
	ErrPersistence  = errors.New("persistence failure")
	ErrNotAvailable = errors.New("feature is not configured")
)

// Context keys for error values
const (
	ConversationIDKey = "conversation_id"
	UserIDKey         = "user_id"
	RoleKey           = "role"
	MemoryIDKey       = "memory_id"
)
