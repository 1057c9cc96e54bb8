// Package httpapi JSON API поверх fiber.
package httpapi

import (
	"context"

	"github.com/Freeeeeet/mentor_match/internal/auth"
	"github.com/Freeeeeet/mentor_match/internal/realtime"
	"github.com/Freeeeeet/mentor_match/internal/service"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// Services сервисы, которые использует API
type Services struct {
	Users        *service.UserService
	Availability *service.AvailabilityService
	Negotiation  *service.NegotiationService
	Meetings     *service.MeetingService
}

type Server struct {
	app      *fiber.App
	svc      Services
	tokens   *auth.Tokens
	hub      *realtime.Hub
	validate *validator.Validate
	botName  string
	logger   *zap.Logger
}

// NewServer собирает fiber приложение со всеми маршрутами. hub может быть nil, тогда /ws недоступен.
func NewServer(svc Services, tokens *auth.Tokens, hub *realtime.Hub, botName string, logger *zap.Logger) *Server {
	s := &Server{
		svc:      svc,
		tokens:   tokens,
		hub:      hub,
		validate: validator.New(),
		botName:  botName,
		logger:   logger,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "mentor_match",
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	s.app.Use(s.logRequests)

	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := s.app.Group("/api/v1")

	// публичные маршруты
	api.Post("/users", s.register)
	if s.hub != nil {
		api.Get("/ws", s.upgradeWebSocket, websocket.New(s.serveWebSocket))
	}

	// всё ниже требует bearer токен
	api.Use(s.requireActor)

	api.Get("/me", s.me)
	api.Get("/me/telegram-link", s.telegramLink)
	api.Get("/mentors", s.listMentors)
	api.Get("/mentors/:id/common-slots", s.commonSlots)
	api.Get("/users/:id", s.getUser)
	api.Get("/users/:id/availability", s.getAvailability)
	api.Put("/users/:id/availability", s.replaceAvailability)

	api.Post("/requests", s.createRequest)
	api.Get("/requests", s.listRequests)
	api.Get("/requests/:id", s.getRequest)
	api.Post("/requests/:id/accept", s.acceptRequest)
	api.Post("/requests/:id/reject", s.rejectRequest)

	api.Post("/proposals", s.openProposal)
	api.Get("/proposals", s.listProposals)
	api.Get("/proposals/:id", s.getProposal)
	api.Post("/proposals/:id/propose-slots", s.proposeSlots)
	api.Post("/proposals/:id/select", s.selectSlot)
	api.Post("/proposals/:id/confirm", s.confirmProposal)
	api.Post("/proposals/:id/cancel", s.cancelProposal)

	api.Get("/meetings", s.listMeetings)
	api.Get("/meetings/:id", s.getMeeting)
	api.Post("/meetings/:id/status", s.updateMeetingStatus)
	api.Post("/meetings/:id/add-to-calendar", s.addToCalendar)
}

// App возвращает fiber приложение (для тестов)
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	s.logger.Info("HTTP server listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
