package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeEmptyDocument    = "EMPTY_DOCUMENT"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrInvalidChunkType     = NewDomainError(ErrCodeValidation, "invalid chunk type")
	ErrInvalidDocumentState = NewDomainError(ErrCodeValidation, "invalid document status")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrEmptyQuery           = NewDomainError(ErrCodeValidation, "query text is empty")
)

// Not found errors
var (
	ErrAuthorityNotFound = NewDomainError(ErrCodeNotFound, "authority not found")
	ErrDocumentNotFound  = NewDomainError(ErrCodeNotFound, "document not found")
	ErrMatterNotFound    = NewDomainError(ErrCodeNotFound, "matter not found")
)

// Pipeline-terminating ingestion errors. These are the only errors the
// segmentation boundary surfaces to its caller; individual malformed
// paragraphs are skipped, not raised.
var (
	ErrEmptyDocument = NewDomainError(ErrCodeEmptyDocument, "document yielded no paragraphs")
	ErrNoChunks      = NewDomainError(ErrCodeEmptyDocument, "document yielded no chunks")
)

// Operation errors
var (
	ErrCommitmentSealed = NewDomainError(ErrCodeInvalidOperation, "commitment cannot be appended to after build")
)
