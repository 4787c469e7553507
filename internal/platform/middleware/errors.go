package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/rapidcare/rapidcare/internal/platform/apperr"
	"github.com/rapidcare/rapidcare/internal/platform/docstore"
)

// ErrorBody is the uniform failure response.
type ErrorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorHandler renders every handler error as ErrorBody. Service errors are
// classified by apperr; *echo.HTTPError keeps its own code.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := classify(err)
		if code >= http.StatusInternalServerError {
			rid, _ := c.Get("request_id").(string)
			logger.Error().Err(err).Str("request_id", rid).Str("path", c.Request().URL.Path).Msg("request failed")
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(code)
		} else {
			writeErr = c.JSON(code, ErrorBody{Success: false, Message: msg})
		}
		if writeErr != nil {
			logger.Debug().Err(writeErr).Msg("write error response")
		}
	}
}

func classify(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if he.Message != nil {
			msg = fmt.Sprint(he.Message)
		}
		return he.Code, msg
	}
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, docstore.ErrDuplicateKey):
		return http.StatusBadRequest, "Record already exists"
	}
	return apperr.StatusCode(err), err.Error()
}
