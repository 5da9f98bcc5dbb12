package httpapi

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	remito "github.com/goliatone/go-remito"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error    string         `json:"error"`
	TextCode string         `json:"text_code,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// StatusCode maps an error to an HTTP status.
func StatusCode(err error) int {
	switch remito.KindOf(err) {
	case remito.TextCodeUnauthorized:
		return http.StatusUnauthorized
	case remito.TextCodeForbidden:
		return http.StatusForbidden
	case remito.TextCodeNotFound:
		return http.StatusNotFound
	case remito.TextCodeInvalidTarget, remito.TextCodeInvalidStatus, remito.TextCodeInvalidInput:
		return http.StatusBadRequest
	case remito.TextCodeNoActiveImpersonation, remito.TextCodeDuplicateName:
		return http.StatusConflict
	case remito.TextCodePersistence:
		return http.StatusInternalServerError
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Code >= 400 && richErr.Code < 600 {
		return richErr.Code
	}
	return http.StatusInternalServerError
}

func errorResponse(err error, status int) ErrorResponse {
	out := ErrorResponse{Error: http.StatusText(status)}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		out.TextCode = richErr.TextCode
		if status < http.StatusInternalServerError {
			out.Error = richErr.Message
			out.Metadata = richErr.Metadata
		}
		return out
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		out.Error = fiberErr.Message
	}
	return out
}

// ErrorHandler renders errors as ErrorResponse. Internal failures are logged
// and their details are not sent to the client.
func ErrorHandler(logger remito.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := StatusCode(err)
		if status >= http.StatusInternalServerError && logger != nil {
			logger.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
		}
		return c.Status(status).JSON(errorResponse(err, status))
	}
}
