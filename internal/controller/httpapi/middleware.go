package httpapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/mentor_match/internal/apperr"
	"github.com/Freeeeeet/mentor_match/internal/model"
	"github.com/Freeeeeet/mentor_match/internal/negotiation"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const localUser = "user"

// logRequests пишет строку лога на каждый запрос
func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()

	if err := c.Next(); err != nil {
		if herr := c.App().ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	s.logger.Info("HTTP request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("latency", time.Since(start)),
	)
	return nil
}

// requireActor проверяет bearer токен и кладёт пользователя в контекст запроса
func (s *Server) requireActor(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
	}

	userID, err := s.tokens.VerifyAccessToken(raw)
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	}

	user, err := s.svc.Users.Get(c.UserContext(), userID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return fiber.NewError(fiber.StatusUnauthorized, "unknown user")
		}
		return err
	}

	c.Locals(localUser, user)
	return c.Next()
}

func currentUser(c *fiber.Ctx) *model.User {
	user, _ := c.Locals(localUser).(*model.User)
	return user
}

func currentActor(c *fiber.Ctx) negotiation.Actor {
	return negotiation.ActorOf(currentUser(c))
}

func idParam(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid id %q", c.Params("id"))
	}
	return id, nil
}
