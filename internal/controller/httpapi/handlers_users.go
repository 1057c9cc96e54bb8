package httpapi

import (
	"fmt"
	"net/url"

	"github.com/Freeeeeet/mentor_match/internal/apperr"
	"github.com/Freeeeeet/mentor_match/internal/auth"
	"github.com/Freeeeeet/mentor_match/internal/availability"
	"github.com/Freeeeeet/mentor_match/internal/model"
	"github.com/Freeeeeet/mentor_match/internal/service"
	"github.com/gofiber/fiber/v2"
)

type registerBody struct {
	Email     string `json:"email" validate:"required,email"`
	Username  string `json:"username" validate:"max=64"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Role      string `json:"role" validate:"required,oneof=mentor student"`
	Bio       string `json:"bio" validate:"max=2000"`
}

func (s *Server) register(c *fiber.Ctx) error {
	var body registerBody
	if err := s.bind(c, &body); err != nil {
		return err
	}

	user, err := s.svc.Users.Register(c.UserContext(), service.RegisterInput{
		Email:     body.Email,
		Username:  body.Username,
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Role:      model.Role(body.Role),
		Bio:       body.Bio,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

func (s *Server) me(c *fiber.Ctx) error {
	return c.JSON(currentUser(c))
}

func (s *Server) getUser(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	user, err := s.svc.Users.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

func (s *Server) listMentors(c *fiber.Ctx) error {
	mentors, err := s.svc.Users.ListMentors(c.UserContext())
	if err != nil {
		return err
	}
	if mentors == nil {
		mentors = []*model.User{}
	}
	return c.JSON(mentors)
}

// telegramLink выдаёт deep link для привязки Telegram аккаунта
func (s *Server) telegramLink(c *fiber.Ctx) error {
	if s.botName == "" {
		return apperr.Validation("telegram bot is not configured")
	}
	token, err := s.tokens.SignLinkToken(currentUser(c).ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"url":        fmt.Sprintf("https://t.me/%s?start=%s", s.botName, url.QueryEscape(token)),
		"expires_in": int(auth.LinkTokenTTL.Seconds()),
	})
}

// ============ Доступность ============

type availabilityBody struct {
	Intervals []availability.Interval `json:"intervals"`
}

func (s *Server) getAvailability(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	intervals, err := s.svc.Availability.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(availabilityBody{Intervals: intervals})
}

func (s *Server) replaceAvailability(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var body availabilityBody
	if err := s.bind(c, &body); err != nil {
		return err
	}
	intervals, err := s.svc.Availability.Replace(c.UserContext(), currentActor(c), id, body.Intervals)
	if err != nil {
		return err
	}
	return c.JSON(availabilityBody{Intervals: intervals})
}

// commonSlots общие слоты текущего пользователя и ментора.
// duration и step в минутах; по умолчанию берутся из конфигурации.
func (s *Server) commonSlots(c *fiber.Ctx) error {
	mentorID, err := idParam(c)
	if err != nil {
		return err
	}

	opts := s.svc.Availability.DefaultMatch()
	if v := c.QueryInt("duration"); v > 0 {
		opts.Duration = minutes(v)
	}
	if v := c.QueryInt("step"); v > 0 {
		opts.Step = minutes(v)
	}
	if v := c.QueryInt("limit"); v > 0 {
		opts.Limit = v
	}

	slots, err := s.svc.Availability.CommonSlots(c.UserContext(), currentUser(c).ID, mentorID, opts)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"slots": slots})
}
