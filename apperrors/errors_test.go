package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := New(CodeTokenExpired, "Token expired")
	wrapped := fmt.Errorf("approve member: %w", err)

	if !HasCode(wrapped, CodeTokenExpired) {
		t.Fatal("expected wrapped error to match code")
	}
	if HasCode(wrapped, CodeInvalidOrExpiredToken) {
		t.Fatal("expected different code not to match")
	}
}

func TestCodeOfFindsOutermostDomainError(t *testing.T) {
	inner := New(CodeGatewayRefused, "Gateway refused")
	outer := Wrap(CodeCompetitionPaymentInitFailed, "Payment initiate failed", inner)

	if got := CodeOf(outer); got != CodeCompetitionPaymentInitFailed {
		t.Fatalf("expected outer code, got %s", got)
	}
	if !HasCode(outer, CodeGatewayRefused) {
		t.Fatal("expected cause code to be reachable")
	}
	if got := CodeOf(errors.New("plain")); got != CodeUnknown {
		t.Fatalf("expected unknown, got %s", got)
	}
}

func TestHTTPStatusKinds(t *testing.T) {
	cases := map[Code]int{
		CodeTeamSizeInvalid:          fiber.StatusBadRequest,
		CodeEmailNotVerified:         fiber.StatusForbidden,
		CodePaymentAuthRequired:      fiber.StatusUnauthorized,
		CodePaymentNotFound:          fiber.StatusNotFound,
		CodeExistingSuccess:          fiber.StatusConflict,
		CodeParticipantAlreadyActive: fiber.StatusConflict,
		CodeUnknown:                  fiber.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := code.HTTPStatus(); got != want {
			t.Fatalf("%s: expected %d, got %d", code, want, got)
		}
	}
}
