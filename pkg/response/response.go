package response

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	apperrors "studyhub/pkg/errors"
)

type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorInfo  `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type ErrorInfo struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type ListResponse struct {
	Items interface{} `json:"items"`
	Total int         `json:"total"`
}

func Success(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Timestamp: now(),
	})
}

func Created(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusCreated, Response{
		Success:   true,
		Data:      data,
		Timestamp: now(),
	})
}

func List(c echo.Context, items interface{}, total int) error {
	return Success(c, ListResponse{Items: items, Total: total})
}

func Error(c echo.Context, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		info := &ErrorInfo{
			Code:    appErr.Code,
			Message: appErr.Message,
		}
		var validationErr validator.ValidationErrors
		if errors.As(appErr.Err, &validationErr) {
			_, info.Details = validationDetails(validationErr)
		}
		return c.JSON(appErr.Status, Response{
			Success:   false,
			Timestamp: now(),
			Error:     info,
		})
	}

	var validationErr validator.ValidationErrors
	if errors.As(err, &validationErr) {
		message, details := validationDetails(validationErr)
		return c.JSON(http.StatusBadRequest, Response{
			Success:   false,
			Timestamp: now(),
			Error: &ErrorInfo{
				Code:    apperrors.CodeValidation,
				Message: message,
				Details: details,
			},
		})
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		msg, _ := httpErr.Message.(string)
		if msg == "" {
			msg = http.StatusText(httpErr.Code)
		}
		return c.JSON(httpErr.Code, Response{
			Success:   false,
			Timestamp: now(),
			Error: &ErrorInfo{
				Code:    strings.ToUpper(strings.ReplaceAll(http.StatusText(httpErr.Code), " ", "_")),
				Message: msg,
			},
		})
	}

	return c.JSON(http.StatusInternalServerError, Response{
		Success:   false,
		Timestamp: now(),
		Error: &ErrorInfo{
			Code:    apperrors.CodeInternal,
			Message: "An unexpected error occurred",
		},
	})
}

func validationDetails(validationErr validator.ValidationErrors) (string, map[string]string) {
	details := make(map[string]string, len(validationErr))
	message := "Invalid input data"
	for i, err := range validationErr {
		field := strings.ToLower(err.Field())
		param := err.Param()

		var m string
		switch err.Tag() {
		case "required":
			m = field + " is required"
		case "min":
			m = field + " must be at least " + param
		case "max":
			m = field + " must be at most " + param
		case "oneof":
			m = field + " must be one of: " + param
		case "gte":
			m = field + " must be greater than or equal to " + param
		case "lte":
			m = field + " must be less than or equal to " + param
		case "url":
			m = field + " must be a valid URL"
		default:
			m = field + " is invalid"
		}
		if i == 0 {
			message = m
		}
		details[field] = m
	}
	return message, details
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
