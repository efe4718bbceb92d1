// Package apperrors provides machine-readable domain errors for the API.
package apperrors

import "github.com/gofiber/fiber/v2"

// Code is a stable, machine-readable error code.
type Code string

const (
	CodeUnknown  Code = "UNKNOWN"
	CodeNotFound Code = "NOT_FOUND"
	CodeInvalid  Code = "INVALID_REQUEST"

	// Account errors
	CodeAuthRequired     Code = "AUTH_REQUIRED"
	CodeEmailNotVerified Code = "EMAIL_NOT_VERIFIED"
	CodeForbidden        Code = "FORBIDDEN"

	// Competition errors
	CodeTeamSizeInvalid              Code = "COMP_TEAM_SIZE_INVALID"
	CodeFieldInvalid                 Code = "COMP_FIELD_INVALID"
	CodeDuplicateParticipantEmail    Code = "COMP_DUPLICATE_PARTICIPANT_EMAIL"
	CodeParticipantAlreadyActive     Code = "COMP_PARTICIPANT_ALREADY_ACTIVE"
	CodeInvalidOrExpiredToken        Code = "COMP_INVALID_OR_EXPIRED_TOKEN"
	CodeTokenExpired                 Code = "COMP_TOKEN_EXPIRED"
	CodeOnlySubmitterCanCancel       Code = "COMP_ONLY_SUBMITTER_CAN_CANCEL"
	CodeCancellationNotApplicable    Code = "COMP_CANCELLATION_NOT_APPLICABLE"
	CodeCancellationNotAllowedState  Code = "COMP_CANCELLATION_NOT_ALLOWED_STATE"
	CodeNotInInvestigationState      Code = "COMP_NOT_IN_INVESTIGATION_STATE"
	CodeBackofficeRejectInvalidState Code = "COMP_BACKOFFICE_REJECT_INVALID_STATE"
	CodeTeamRequestInvalidState      Code = "COMP_TEAM_REQUEST_INVALID_STATE"
	CodeCompetitionPaymentInitFailed Code = "COMP_PAYMENT_INIT_FAILED"

	// Registration errors
	CodeChildInvalidSelection     Code = "REG_CHILD_INVALID_SELECTION"
	CodeAlreadyOwned              Code = "REG_ALREADY_OWNED"
	CodeChildAlreadyOwned         Code = "REG_CHILD_ALREADY_OWNED"
	CodeAlreadyFinalOrApproved    Code = "REG_ALREADY_FINAL_OR_APPROVED"
	CodeRejectionReasonRequired   Code = "REG_REJECTION_REASON_REQUIRED"
	CodeRegistrationInvalidState  Code = "REG_INVALID_STATE"
	CodeRegistrationPaymentFailed Code = "REG_PAYMENT_INIT_FAILED"
	CodeSessionUnavailable        Code = "REG_SESSION_UNAVAILABLE"

	// Payment errors
	CodePaymentAuthRequired   Code = "PAY_AUTH_REQUIRED"
	CodeMerchantNotConfigured Code = "PAY_MERCHANT_NOT_CONFIGURED"
	CodeExistingSuccess       Code = "PAY_EXISTING_SUCCESS"
	CodePaymentInitFailed     Code = "PAY_INIT_FAILED"
	CodeGatewayRefused        Code = "PAY_GATEWAY_REFUSED"
	CodePaymentNotFound       Code = "PAY_NOT_FOUND_FOR_USER"
	CodeUnknownTarget         Code = "PAY_UNKNOWN_TARGET"
)

// HTTPStatus maps a code to the HTTP status returned to the caller.
func (c Code) HTTPStatus() int {
	switch c {
	// Validation - caller-correctable input
	case CodeInvalid,
		CodeTeamSizeInvalid,
		CodeFieldInvalid,
		CodeDuplicateParticipantEmail,
		CodeInvalidOrExpiredToken,
		CodeTokenExpired,
		CodeCancellationNotApplicable,
		CodeChildInvalidSelection,
		CodeRejectionReasonRequired,
		CodeSessionUnavailable,
		CodeMerchantNotConfigured,
		CodeUnknownTarget:
		return fiber.StatusBadRequest

	case CodeAuthRequired, CodePaymentAuthRequired:
		return fiber.StatusUnauthorized

	case CodeEmailNotVerified, CodeForbidden, CodeOnlySubmitterCanCancel:
		return fiber.StatusForbidden

	case CodeNotFound, CodePaymentNotFound:
		return fiber.StatusNotFound

	// Conflict - state does not allow the operation
	case CodeParticipantAlreadyActive,
		CodeCancellationNotAllowedState,
		CodeNotInInvestigationState,
		CodeBackofficeRejectInvalidState,
		CodeTeamRequestInvalidState,
		CodeCompetitionPaymentInitFailed,
		CodeAlreadyOwned,
		CodeChildAlreadyOwned,
		CodeAlreadyFinalOrApproved,
		CodeRegistrationInvalidState,
		CodeRegistrationPaymentFailed,
		CodeExistingSuccess,
		CodePaymentInitFailed,
		CodeGatewayRefused:
		return fiber.StatusConflict

	default:
		return fiber.StatusInternalServerError
	}
}
