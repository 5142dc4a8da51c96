package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/simbok/delivery/internal/api/models"
	"github.com/simbok/delivery/internal/geocoding"
	"github.com/simbok/delivery/internal/otp"
	"github.com/simbok/delivery/internal/pricing"
	"github.com/simbok/delivery/internal/routing"
)

// providerRetryAfter is the Retry-After hint, in seconds, when an upstream is shedding load.
const providerRetryAfter = 30

// FromError writes the problem that matches a domain error. Unknown errors
// become a generic 500 so internal detail is not leaked.
func FromError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalidInput *pricing.InvalidInputError
		routingErr   *routing.Error
	)

	switch {
	case errors.As(err, &invalidInput):
		BadRequest(w, r, invalidInput.Error(), []models.FieldError{{
			Field:   invalidInput.Field,
			Message: invalidInput.Reason,
			Code:    models.CodeInvalid,
		}})

	case errors.Is(err, pricing.ErrDistanceTooFar):
		Unprocessable(w, r, err.Error())

	case errors.Is(err, routing.ErrNoRouteFound):
		Unprocessable(w, r, routing.ErrNoRouteFound.Error())
	case errors.Is(err, routing.ErrInvalidCoordinates):
		BadRequest(w, r, routing.ErrInvalidCoordinates.Error(), nil)
	case errors.Is(err, routing.ErrRateLimitExceeded):
		ServiceUnavailable(w, r, "routing provider rate limit reached, try again later", providerRetryAfter)
	case errors.As(err, &routingErr) && routingErr.Code == "CIRCUIT_OPEN":
		ServiceUnavailable(w, r, "routing provider is temporarily unavailable", providerRetryAfter)
	case errors.Is(err, routing.ErrProviderUnavailable), errors.Is(err, routing.ErrInvalidResponse):
		BadGateway(w, r, "routing provider failed to resolve the route")

	case errors.Is(err, geocoding.ErrNotFound):
		NotFound(w, r, geocoding.ErrNotFound.Error())
	case errors.Is(err, geocoding.ErrInvalidQuery):
		BadRequest(w, r, err.Error(), nil)
	case errors.Is(err, geocoding.ErrProviderUnavailable):
		BadGateway(w, r, "geocoding provider failed")

	case errors.Is(err, otp.ErrInvalidPhone):
		BadRequest(w, r, otp.ErrInvalidPhone.Error(), []models.FieldError{{
			Field:   "phone",
			Message: "must be an Indonesian mobile number",
			Code:    models.CodeInvalid,
		}})
	case errors.Is(err, otp.ErrCodeNotFound), errors.Is(err, otp.ErrCodeMismatch):
		Unprocessable(w, r, err.Error())

	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		ServiceUnavailable(w, r, "request timed out", 0)

	default:
		InternalError(w, r, "an unexpected error occurred")
	}
}
