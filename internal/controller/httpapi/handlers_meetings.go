package httpapi

import (
	"github.com/Freeeeeet/mentor_match/internal/model"
	"github.com/gofiber/fiber/v2"
)

type meetingStatusBody struct {
	Status string `json:"status" validate:"required,oneof=confirmed completed cancelled"`
}

func (s *Server) listMeetings(c *fiber.Ctx) error {
	meetings, err := s.svc.Meetings.List(c.UserContext(), currentActor(c))
	if err != nil {
		return err
	}
	if meetings == nil {
		meetings = []*model.Meeting{}
	}
	return c.JSON(meetings)
}

func (s *Server) getMeeting(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	m, err := s.svc.Meetings.Get(c.UserContext(), currentActor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(m)
}

func (s *Server) updateMeetingStatus(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var body meetingStatusBody
	if err := s.bind(c, &body); err != nil {
		return err
	}
	m, err := s.svc.Meetings.UpdateStatus(c.UserContext(), currentActor(c), id, model.MeetingStatus(body.Status))
	if err != nil {
		return err
	}
	return c.JSON(m)
}

func (s *Server) addToCalendar(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	m, err := s.svc.Meetings.AddToCalendar(c.UserContext(), currentActor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(m)
}
