package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ErrorHandler returns an echo.HTTPErrorHandler that translates domain errors
// into the API's JSON error shape. Unknown errors are logged with their detail
// and reported to the client as a generic 500.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		code := KindUnknown.String()
		msg := "internal server error"

		var he *echo.HTTPError
		var ae *Error
		switch {
		case errors.As(err, &ae):
			status = HTTPStatus(ae)
			code = ae.Kind.String()
			msg = ae.Msg
		case errors.As(err, &he):
			status = he.Code
			code = "http_error"
			if m, ok := he.Message.(string); ok {
				msg = m
			}
		default:
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).
				Str("request_id", rid).
				Str("path", c.Request().URL.Path).
				Msg("unhandled error")
		}

		if status >= http.StatusInternalServerError && code == KindUpstream.String() {
			// Upstream detail stays in logs only.
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).Str("request_id", rid).Msg("upstream failure")
		}

		body := map[string]interface{}{
			"error":   code,
			"message": msg,
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}
