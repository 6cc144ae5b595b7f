package common

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// FieldError describes one rejected request field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// DecodeJSON decodes the request body into v and runs its validate tags. Malformed
// JSON is a 400, a body over the http.MaxBytesReader limit a 413 and tag failures 422.
func DecodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return PayloadTooLarge(err)
		}
		appErr := ValidationError("invalid payload", errors.Join(ErrValidation, err))
		appErr.HTTPStatus = http.StatusBadRequest
		appErr.Code = "BAD_REQUEST"
		return appErr
	}
	return ValidateStruct(v)
}

// ValidateStruct runs validate tags on v.
func ValidateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationError("invalid payload", errors.Join(ErrValidation, err))
	}
	details := make([]FieldError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, FieldError{Field: fe.Namespace(), Rule: fe.Tag(), Param: fe.Param()})
	}
	appErr := ValidationError("request validation failed", errors.Join(ErrValidation, err))
	appErr.Details = details
	return appErr
}

// Classify maps an error chain to the AppError rendered for it.
func Classify(err error) *AppError {
	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, ErrValidation):
		return ValidationError(validationReason(err), err)
	case errors.Is(err, ErrExternal):
		return NewAppError("UPSTREAM_FAILED", "storefront request failed", http.StatusBadGateway, err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewAppError("UPSTREAM_TIMEOUT", "storefront request timed out", http.StatusGatewayTimeout, err)
	default:
		return NewAppError("INTERNAL", "internal error", http.StatusInternalServerError, err)
	}
}

func validationReason(err error) string {
	msg := err.Error()
	marker := ErrValidation.Error() + ": "
	if i := strings.Index(msg, marker); i >= 0 {
		return msg[:i] + msg[i+len(marker):]
	}
	return msg
}
