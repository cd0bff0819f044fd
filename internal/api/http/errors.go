package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mkhodaee16/ecb-bot/models"
)

type errorBody struct {
	Success bool             `json:"success"`
	Kind    models.ErrorKind `json:"kind"`
	Error   string           `json:"error"`
}

func statusOf(kind models.ErrorKind) int {
	switch kind {
	case models.KindAuthentication:
		return fiber.StatusForbidden
	case models.KindValidation:
		return fiber.StatusBadRequest
	case models.KindNotFound:
		return fiber.StatusNotFound
	case models.KindInvalidState:
		return fiber.StatusConflict
	case models.KindGateway:
		return fiber.StatusBadGateway
	case models.KindTransientData:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func kindOfStatus(code int) models.ErrorKind {
	switch code {
	case fiber.StatusNotFound:
		return models.KindNotFound
	case fiber.StatusForbidden, fiber.StatusUnauthorized:
		return models.KindAuthentication
	default:
		if code >= 400 && code < 500 {
			return models.KindValidation
		}
		return models.KindInternal
	}
}

// ErrorHandler renders every handler error as {success:false, kind, error}.
func ErrorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var (
			kind models.ErrorKind
			code int
			msg  = err.Error()
		)

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			kind = kindOfStatus(code)
			msg = fe.Message
		} else {
			kind = models.KindOf(err)
			code = statusOf(kind)
		}

		entry := logger.
			WithField("method", c.Method()).
			WithField("path", c.Path()).
			WithField("status", code).
			WithError(err)
		if code >= fiber.StatusInternalServerError {
			entry.Error("request failed")
		} else {
			entry.Debug("request rejected")
		}

		if kind == models.KindInternal {
			msg = "internal error"
		}

		return c.Status(code).JSON(errorBody{Success: false, Kind: kind, Error: msg})
	}
}
