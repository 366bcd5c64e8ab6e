package handler

import (
	"errors"
	"fmt"

	"plus-api/internal/service"
	"plus-api/pkg/apierror"
)

// toAPIError maps service and repository errors onto API errors. Unknown
// errors pass through and render as 500.
func toAPIError(err error) error {
	var selErr *service.SelectionError
	switch {
	case errors.As(err, &selErr):
		field := apierror.FieldError{Field: "active." + selErr.Category, Message: selErr.Error()}
		if selErr.Reason == service.ReasonNotOwned {
			return apierror.Forbidden(selErr.Error()).WithCode(apierror.CodeCosmeticNotOwned).WithDetails(field)
		}
		return apierror.ValidationError(selErr.Error(), field).WithCode(apierror.CodeInvalidSelection)
	case errors.Is(err, service.ErrBillingUnavailable):
		return apierror.BadGateway("Unable to fetch purchases from the billing provider").WithCode(apierror.CodeBillingUnavailable)
	}
	return err
}

func invalidField(field, format string, args ...interface{}) *apierror.Error {
	msg := fmt.Sprintf(format, args...)
	return apierror.ValidationError(msg, apierror.FieldError{Field: field, Message: msg})
}
