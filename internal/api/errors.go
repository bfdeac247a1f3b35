package api

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"entitysql/internal/metadata"
)

type AppError struct {
	Code    string `json:"code"`
	Status  int    `json:"-"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

type ErrorResponse struct {
	Error *AppError `json:"error"`
}

func NewAppError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Status: status, Message: msg}
}

func InvalidParamError(name, value string) *AppError {
	return &AppError{
		Code:    "INVALID_PARAM",
		Status:  400,
		Message: fmt.Sprintf("Invalid value for %s: %q", name, value),
	}
}

// ErrorHandler renders AppError and metadata errors as JSON; anything else
// is logged and reported as an internal error.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.Status).JSON(ErrorResponse{Error: appErr})
	}

	var metaErr *metadata.Error
	if errors.As(err, &metaErr) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{
			Error: &AppError{Code: metaErr.Code, Message: metaErr.Error()},
		})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(ErrorResponse{
			Error: &AppError{Code: "HTTP_ERROR", Message: fiberErr.Message},
		})
	}

	log.Error().Err(err).Str("path", c.Path()).Msg("Request failed")
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error: &AppError{Code: "INTERNAL_ERROR", Message: "Internal server error"},
	})
}
