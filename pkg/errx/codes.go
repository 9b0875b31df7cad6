package errx

import "net/http"

// Code is a stable, machine-readable error identifier
type Code string

const (
	CodeMissingCredential       Code = "MISSING_CREDENTIAL"
	CodeInvalidCredentialFormat Code = "INVALID_CREDENTIAL_FORMAT"
	CodeInvalidCredential       Code = "INVALID_CREDENTIAL"
	CodeExpiredToken            Code = "EXPIRED_TOKEN"
	CodeInvalidToken            Code = "INVALID_TOKEN"
	CodeClaimValidationFailed   Code = "CLAIM_VALIDATION_FAILED"
	CodeNotInitialized          Code = "NOT_INITIALIZED"

	CodeInsufficientRole         Code = "INSUFFICIENT_ROLE"
	CodeOrganizationAccessDenied Code = "ORGANIZATION_ACCESS_DENIED"
	CodeOrganizationRequired     Code = "ORGANIZATION_REQUIRED"

	CodeAgentNotFound      Code = "AGENT_NOT_FOUND"
	CodeAgentInactive      Code = "AGENT_INACTIVE"
	CodeAgentAlreadyExists Code = "AGENT_ALREADY_EXISTS"

	CodeNotFound            Code = "CODE_NOT_FOUND"
	CodeAlreadyUsed         Code = "CODE_ALREADY_USED"
	CodeAlreadyRevoked      Code = "CODE_ALREADY_REVOKED"
	CodeExpired             Code = "CODE_EXPIRED"
	CodeInvalidCodeFormat   Code = "INVALID_CODE_FORMAT"
	CodeGenerationExhausted Code = "CODE_GENERATION_EXHAUSTED"

	CodeValidationFailed      Code = "VALIDATION_FAILED"
	CodeResourceNotFound      Code = "NOT_FOUND"
	CodeRateLimited           Code = "RATE_LIMITED"
	CodeUnavailable           Code = "SERVICE_UNAVAILABLE"
	CodeInternalLookupFailure Code = "INTERNAL_LOOKUP_FAILURE"
	CodeInternal              Code = "INTERNAL"
)

var statusByCode = map[Code]int{
	CodeMissingCredential:       http.StatusUnauthorized,
	CodeInvalidCredentialFormat: http.StatusUnauthorized,
	CodeInvalidCredential:       http.StatusUnauthorized,
	CodeExpiredToken:            http.StatusUnauthorized,
	CodeInvalidToken:            http.StatusUnauthorized,
	CodeClaimValidationFailed:   http.StatusUnauthorized,
	CodeNotInitialized:          http.StatusServiceUnavailable,

	CodeInsufficientRole:         http.StatusForbidden,
	CodeOrganizationAccessDenied: http.StatusForbidden,
	CodeOrganizationRequired:     http.StatusBadRequest,

	CodeAgentNotFound:      http.StatusUnauthorized,
	CodeAgentInactive:      http.StatusForbidden,
	CodeAgentAlreadyExists: http.StatusConflict,

	CodeNotFound:            http.StatusNotFound,
	CodeAlreadyUsed:         http.StatusConflict,
	CodeAlreadyRevoked:      http.StatusConflict,
	CodeExpired:             http.StatusGone,
	CodeInvalidCodeFormat:   http.StatusBadRequest,
	CodeGenerationExhausted: http.StatusInternalServerError,

	CodeValidationFailed:      http.StatusBadRequest,
	CodeResourceNotFound:      http.StatusNotFound,
	CodeRateLimited:           http.StatusTooManyRequests,
	CodeUnavailable:           http.StatusServiceUnavailable,
	CodeInternalLookupFailure: http.StatusInternalServerError,
	CodeInternal:              http.StatusInternalServerError,
}

// HTTPStatus returns the suggested HTTP status for a code
func (c Code) HTTPStatus() int {
	if status, ok := statusByCode[c]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// String returns the string representation of the code
func (c Code) String() string {
	return string(c)
}

// Sentinels for errors.Is matching. Never mutate these; use New or Wrap
// to build an instance carrying details.
var (
	ErrMissingCredential        = New(CodeMissingCredential, "authentication credential is required")
	ErrInvalidCredentialFormat  = New(CodeInvalidCredentialFormat, "credential has an invalid format")
	ErrInvalidCredential        = New(CodeInvalidCredential, "credential is invalid")
	ErrExpiredToken             = New(CodeExpiredToken, "token has expired")
	ErrInvalidToken             = New(CodeInvalidToken, "token is invalid")
	ErrClaimValidationFailed    = New(CodeClaimValidationFailed, "token claims failed validation")
	ErrNotInitialized           = New(CodeNotInitialized, "token verifier is not initialized")
	ErrInsufficientRole         = New(CodeInsufficientRole, "insufficient role for this operation")
	ErrOrganizationAccessDenied = New(CodeOrganizationAccessDenied, "access to the requested organization is denied")
	ErrOrganizationRequired     = New(CodeOrganizationRequired, "an organization context is required")
	ErrAgentNotFound            = New(CodeAgentNotFound, "agent not found")
	ErrAgentInactive            = New(CodeAgentInactive, "agent is not active")
	ErrAgentAlreadyExists       = New(CodeAgentAlreadyExists, "agent id is already registered")
	ErrCodeNotFound             = New(CodeNotFound, "registration code not found")
	ErrCodeAlreadyUsed          = New(CodeAlreadyUsed, "registration code has already been used")
	ErrCodeAlreadyRevoked       = New(CodeAlreadyRevoked, "registration code has already been revoked")
	ErrCodeExpired              = New(CodeExpired, "registration code has expired")
	ErrInvalidCodeFormat        = New(CodeInvalidCodeFormat, "registration code has an invalid format")
	ErrCodeGenerationExhausted  = New(CodeGenerationExhausted, "failed to generate a unique registration code")
	ErrInternalLookupFailure    = New(CodeInternalLookupFailure, "internal lookup failed")
)
