package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not_found"
	KindPermission  Kind = "permission"
	KindConflict    Kind = "conflict"
	KindExternalAPI Kind = "external_api"
	KindGeneral     Kind = "general"
)

// Error is the single error type crossing service boundaries.
type Error struct {
	Kind   Kind
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func Of(kind Kind, code string, err error) *Error {
	return &Error{Kind: kind, Status: StatusFor(kind), Code: code, Err: err}
}

func Validation(format string, args ...any) *Error {
	return Of(KindValidation, "validation_error", fmt.Errorf(format, args...))
}

func NotFound(format string, args ...any) *Error {
	return Of(KindNotFound, "not_found", fmt.Errorf(format, args...))
}

func Conflict(format string, args ...any) *Error {
	return Of(KindConflict, "conflict", fmt.Errorf(format, args...))
}

func ExternalAPI(err error, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	if err == nil {
		return Of(KindExternalAPI, "external_api_error", errors.New(msg))
	}
	return Of(KindExternalAPI, "external_api_error", fmt.Errorf("%s: %w", msg, err))
}

func General(err error) *Error {
	return Of(KindGeneral, "internal_error", err)
}

// Wrap tags err with kind unless the chain already carries an *Error.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return Of(kind, "", err)
}

func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) && ae.Kind != "" {
		return ae.Kind
	}
	return KindGeneral
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func StatusFor(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindPermission:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindExternalAPI:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
