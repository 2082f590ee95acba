package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeForbidden              = "forbidden"
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeTokenExpired           = "token_expired"
	ErrCodeAuthenticationRequired = "authentication_required"

	// Request errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"

	// Session errors
	ErrCodeSessionNotFound    = "session_not_found"
	ErrCodeSessionClosed      = "session_closed"
	ErrCodeUnsavedChanges     = "unsaved_changes"
	ErrCodeWrongMode          = "wrong_mode"
	ErrCodeBlockIndex         = "block_index_out_of_range"
	ErrCodeWrongBlockType     = "wrong_block_type"
	ErrCodeInvalidCommand     = "invalid_command"
	ErrCodeInvalidPermutation = "invalid_permutation"
	ErrCodeInvalidVersion     = "invalid_version"

	// Document errors
	ErrCodeParseFailed      = "parse_failed"
	ErrCodeUnknownBlockType = "unknown_block_type"

	// Audio processing errors
	ErrCodeAlreadyWatching = "already_watching"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"
)
