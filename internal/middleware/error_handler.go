package middleware

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorHandler writes every error as JSON. A string HTTPError message becomes
// {"message": ...} and any other message value is written as is. 5xx bodies
// are always the generic internal error.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	var body any = map[string]string{"message": "internal server error", "code": "internal"}

	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if code < http.StatusInternalServerError {
			switch m := he.Message.(type) {
			case string:
				body = map[string]string{"message": m}
			case nil:
				body = map[string]string{"message": http.StatusText(code)}
			default:
				body = m
			}
		}
		if he.Internal != nil {
			err = he.Internal
		}
	}

	if code >= http.StatusInternalServerError {
		slog.Error("request failed",
			"component", "http",
			"method", c.Request().Method,
			"path", c.Path(),
			"status", code,
			"error", err,
		)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, body)
}
