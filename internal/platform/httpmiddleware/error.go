package httpmiddleware

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/calhealth/trustscore/internal/platform/apicontext"
	"github.com/calhealth/trustscore/internal/platform/tracing"
	"github.com/calhealth/trustscore/pkg/apierr"
)

// ErrorResponse is the JSON body written for any non-2xx response.
type ErrorResponse struct {
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	TraceID   string `json:"trace_id,omitempty"`
}

// Error builds the centralized echo.HTTPErrorHandler. It maps the
// validation, not-found, rate-limited and repository apierr.Kind values to
// their HTTP status codes; any other error falls back to echo's own
// *echo.HTTPError and then to 500. Adapted from the teacher's
// stem/pkg/middleware.Error.
func Error(logger ectologger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		ctx := c.Request().Context()
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := "internal server error"

		switch apierr.KindOf(err) {
		case apierr.KindValidation:
			code, message = http.StatusBadRequest, err.Error()
		case apierr.KindNotFound:
			code, message = http.StatusNotFound, err.Error()
		case apierr.KindRateLimited:
			code, message = http.StatusTooManyRequests, err.Error()
		case apierr.KindRepository:
			code, message = http.StatusInternalServerError, "internal server error"
		default:
			if he, ok := err.(*echo.HTTPError); ok {
				code = he.Code
				if msg, ok := he.Message.(string); ok {
					message = msg
				}
			} else if httperror.IsHTTPError(err) {
				code = httperror.GetStatusCode(err)
				message = httperror.ToHTTPError(err).Error()
			}
		}

		if code >= http.StatusInternalServerError {
			logger.WithContext(ctx).WithError(err).Error("request failed")
		} else {
			logger.WithContext(ctx).WithError(err).Warn("request rejected")
		}

		_ = c.JSON(code, ErrorResponse{
			Message:   message,
			RequestID: apicontext.GetRequestID(ctx),
			TraceID:   tracing.GetTraceID(ctx),
		})
	}
}
