package message

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes carried by error envelopes.
const (
	TextCodeBadInput           = "BAD_INPUT"
	TextCodeUnauthorized       = "UNAUTHORIZED"
	TextCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	TextCodeInternal           = "INTERNAL"
)

func unauthorizedError(message string) error {
	return goerrors.New(message, goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(TextCodeUnauthorized)
}

func notConfiguredError(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusServiceUnavailable).
		WithTextCode(TextCodeServiceUnavailable)
}

func badInputError(message string) error {
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(TextCodeBadInput)
}

func tooLargeError(message string) error {
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusRequestEntityTooLarge).
		WithTextCode(TextCodeBadInput)
}

func validationError(message string, fields ...goerrors.FieldError) error {
	return goerrors.NewValidation(message, fields...).
		WithCode(http.StatusBadRequest).
		WithTextCode(TextCodeBadInput).
		WithSeverity(goerrors.SeverityError)
}

func internalError(source error, message string) error {
	if source == nil {
		return goerrors.New(message, goerrors.CategoryInternal).
			WithCode(http.StatusInternalServerError).
			WithTextCode(TextCodeInternal)
	}
	return goerrors.Wrap(source, goerrors.CategoryInternal, message).
		WithCode(http.StatusInternalServerError).
		WithTextCode(TextCodeInternal)
}
