package sge

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeEmptyCredentials       = "EMPTY_CREDENTIALS"
	textCodeInvalidCredentials     = "INVALID_CREDENTIALS"
	textCodeInvalidRegistration    = "INVALID_REGISTRATION_DATA"
	textCodePasswordPolicy         = "PASSWORD_POLICY_VIOLATION"
	textCodePasswordUnchanged      = "PASSWORD_UNCHANGED"
	textCodePasswordMismatch       = "PASSWORD_CONFIRMATION_MISMATCH"
	textCodeReauthenticationFailed = "REAUTHENTICATION_FAILED"
	textCodeRequestNotPending      = "REQUEST_NOT_PENDING"
	textCodeMissingRejectionReason = "MISSING_REJECTION_REASON"
	textCodeNetworkUnavailable     = "NETWORK_UNAVAILABLE"
	textCodeNotAuthorized          = "NOT_AUTHORIZED"
	textCodeOperationInFlight      = "OPERATION_IN_FLIGHT"
)

// ErrEmptyCredentials is returned before any remote call when either
// the email or the password is blank.
var ErrEmptyCredentials = goerrors.New("email and password are required", goerrors.CategoryValidation).
	WithTextCode(textCodeEmptyCredentials).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidCredentials is the single failure callers see for a
// rejected login, regardless of whether the remote authority said no
// or the fallback ladder ran out.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(textCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrPasswordPolicyViolation is returned when a new password misses
// the complexity policy.
var ErrPasswordPolicyViolation = goerrors.New("password does not meet the complexity policy", goerrors.CategoryValidation).
	WithTextCode(textCodePasswordPolicy).
	WithCode(goerrors.CodeBadRequest)

// ErrPasswordUnchanged is returned when the new password equals the
// current one.
var ErrPasswordUnchanged = goerrors.New("new password must differ from the current password", goerrors.CategoryValidation).
	WithTextCode(textCodePasswordUnchanged).
	WithCode(goerrors.CodeBadRequest)

// ErrPasswordConfirmationMismatch is returned when the confirmation
// does not repeat the new password.
var ErrPasswordConfirmationMismatch = goerrors.New("password confirmation does not match", goerrors.CategoryValidation).
	WithTextCode(textCodePasswordMismatch).
	WithCode(goerrors.CodeBadRequest)

// ErrReauthenticationFailed is returned when the current password is
// rejected during a password change.
var ErrReauthenticationFailed = goerrors.New("current password was rejected", goerrors.CategoryAuth).
	WithTextCode(textCodeReauthenticationFailed).
	WithCode(goerrors.CodeUnauthorized)

// ErrRequestNotPending is returned by approve/reject when the request
// already reached a terminal status. Always surfaced to the approver.
var ErrRequestNotPending = goerrors.New("registration request is not pending", goerrors.CategoryConflict).
	WithTextCode(textCodeRequestNotPending).
	WithCode(goerrors.CodeConflict)

// ErrMissingRejectionReason is returned when a rejection carries no
// reason. Always surfaced to the approver.
var ErrMissingRejectionReason = goerrors.New("rejection reason is required", goerrors.CategoryValidation).
	WithTextCode(textCodeMissingRejectionReason).
	WithCode(goerrors.CodeBadRequest)

// ErrNetworkUnavailable marks a failed remote attempt. It never
// crosses the gateway boundary; it either triggers the fallback path
// or is converted into ErrInvalidCredentials.
var ErrNetworkUnavailable = goerrors.New("remote authority unreachable", goerrors.CategoryOperation).
	WithTextCode(textCodeNetworkUnavailable)

// ErrNotAuthorized is returned when a non-manager reaches for the
// approval workbench, or an approver lacks the users capability.
var ErrNotAuthorized = goerrors.New("not authorized", goerrors.CategoryAuthz).
	WithTextCode(textCodeNotAuthorized).
	WithCode(goerrors.CodeForbidden)

// ErrOperationInFlight is returned by the shell when a duplicate
// submit races an operation that is still running.
var ErrOperationInFlight = goerrors.New("operation already in flight", goerrors.CategoryConflict).
	WithTextCode(textCodeOperationInFlight).
	WithCode(goerrors.CodeConflict)

// InvalidRegistrationData builds the validation failure for a
// registration submission, naming the offending field.
func InvalidRegistrationData(field, reason string) *goerrors.Error {
	return goerrors.New("invalid registration data", goerrors.CategoryValidation).
		WithTextCode(textCodeInvalidRegistration).
		WithCode(goerrors.CodeBadRequest).
		WithMetadata(map[string]any{
			"field":  field,
			"reason": reason,
		})
}

var userMessages = map[string]string{
	textCodeEmptyCredentials:       "Informe email e senha.",
	textCodeInvalidCredentials:     "Email ou senha incorretos.",
	textCodePasswordPolicy:         "A nova senha não atende à política de segurança.",
	textCodePasswordUnchanged:      "A nova senha deve ser diferente da atual.",
	textCodePasswordMismatch:       "As senhas não conferem.",
	textCodeReauthenticationFailed: "Senha atual incorreta.",
	textCodeRequestNotPending:      "Esta solicitação já foi resolvida.",
	textCodeMissingRejectionReason: "Informe o motivo da rejeição.",
	textCodeNotAuthorized:          "Você não tem permissão para esta operação.",
	textCodeOperationInFlight:      "Aguarde a operação em andamento.",
}

// userMessage maps an error to the Portuguese message shown in the
// console. Validation errors keep their specific reason; anything
// unmapped gets a generic failure line.
func userMessage(err error) string {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		if rich.TextCode == textCodeInvalidRegistration {
			if reason, ok := rich.Metadata["reason"].(string); ok && reason != "" {
				return reason
			}
		}
		if msg, ok := userMessages[rich.TextCode]; ok {
			return msg
		}
	}
	return "Não foi possível concluir a operação. Tente novamente."
}

// RegistrationErrorField extracts the offending field from an
// InvalidRegistrationData error, or "" when the error is not one.
func RegistrationErrorField(err error) string {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return ""
	}
	if rich.TextCode != textCodeInvalidRegistration {
		return ""
	}
	if field, ok := rich.Metadata["field"].(string); ok {
		return field
	}
	return ""
}
