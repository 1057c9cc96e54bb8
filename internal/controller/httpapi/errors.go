package httpapi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Freeeeeet/mentor_match/internal/apperr"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var kindStatus = map[apperr.Kind]int{
	apperr.KindMalformedTimestamp:          fiber.StatusBadRequest,
	apperr.KindMalformedSlot:               fiber.StatusBadRequest,
	apperr.KindSlotNotOffered:              fiber.StatusBadRequest,
	apperr.KindValidation:                  fiber.StatusBadRequest,
	apperr.KindForbidden:                   fiber.StatusForbidden,
	apperr.KindNotFound:                    fiber.StatusNotFound,
	apperr.KindInvalidStateTransition:      fiber.StatusConflict,
	apperr.KindDuplicateRequest:            fiber.StatusConflict,
	apperr.KindExternalCollaboratorFailure: fiber.StatusBadGateway,
}

// errorResponse переводит ошибку в HTTP статус и тело ответа
func errorResponse(err error) (int, errorBody) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		status, ok := kindStatus[appErr.Kind]
		if !ok {
			status = fiber.StatusInternalServerError
		}
		msg := appErr.Message
		if msg == "" {
			msg = string(appErr.Kind)
		}
		return status, errorBody{Error: string(appErr.Kind), Message: msg}
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		kind := "http_error"
		switch fiberErr.Code {
		case fiber.StatusNotFound:
			kind = string(apperr.KindNotFound)
		case fiber.StatusUnauthorized:
			kind = "unauthorized"
		}
		return fiberErr.Code, errorBody{Error: kind, Message: fiberErr.Message}
	}

	return fiber.StatusInternalServerError, errorBody{Error: "internal", Message: "internal server error"}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status, body := errorResponse(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}
	return c.Status(status).JSON(body)
}

// bind разбирает JSON тело и проверяет теги validate.
// Ошибки разбора слотов уже доменные и пробрасываются как есть.
func (s *Server) bind(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		if apperr.KindOf(err) != "" {
			return err
		}
		return apperr.Validation("cannot parse request body: %v", err)
	}
	if err := s.validate.Struct(out); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Validation("%v", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return apperr.Validation("invalid fields: %s", strings.Join(fields, ", "))
}
