package utils

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"studybuddy/apperrors"
)

// SuccessResponse is the envelope for successful JSON responses.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is the envelope for error JSON responses.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Kind    string      `json:"kind,omitempty"`
	Message string      `json:"message,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

func Success(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(SuccessResponse{
		Success: true,
		Data:    data,
	})
}

func Error(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(ErrorResponse{
		Success: false,
		Error:   http.StatusText(status),
		Message: err.Error(),
	})
}

// PaginatedResponse is the envelope for paginated list responses.
type PaginatedResponse struct {
	Success  bool        `json:"success"`
	Data     interface{} `json:"data"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"pageSize"`
}

func Paginate(c *fiber.Ctx, data interface{}, total int64, page int, pageSize int) error {
	return c.JSON(PaginatedResponse{
		Success:  true,
		Data:     data,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// AppError maps the service error taxonomy onto HTTP statuses. Unknown
// errors become 500 without leaking internals.
func AppError(c *fiber.Ctx, err error) error {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Error:   http.StatusText(fiber.StatusInternalServerError),
			Message: "Internal server error",
		})
	}

	status := fiber.StatusInternalServerError
	switch appErr.Kind {
	case apperrors.KindValidation, apperrors.KindInvalidState, apperrors.KindInsufficientPool:
		status = fiber.StatusBadRequest
	case apperrors.KindExpired:
		status = fiber.StatusGone
	case apperrors.KindNotFound:
		status = fiber.StatusNotFound
	case apperrors.KindConflict:
		status = fiber.StatusConflict
	}

	return c.Status(status).JSON(ErrorResponse{
		Success: false,
		Error:   http.StatusText(status),
		Kind:    string(appErr.Kind),
		Message: appErr.Detail,
	})
}
