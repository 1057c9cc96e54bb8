package httpapi

import (
	"time"

	"github.com/Freeeeeet/mentor_match/internal/apperr"
	"github.com/Freeeeeet/mentor_match/internal/availability"
	"github.com/Freeeeeet/mentor_match/internal/model"
	"github.com/gofiber/fiber/v2"
)

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}

// ============ Заявки ============

type createRequestBody struct {
	MentorID int64  `json:"mentor_id" validate:"required,gt=0"`
	Message  string `json:"message" validate:"max=2000"`
}

type acceptBody struct {
	Slots []availability.Interval `json:"slots"`
	Auto  bool                    `json:"auto"`
}

func (s *Server) createRequest(c *fiber.Ctx) error {
	var body createRequestBody
	if err := s.bind(c, &body); err != nil {
		return err
	}
	req, err := s.svc.Negotiation.CreateRequest(c.UserContext(), currentActor(c), body.MentorID, body.Message)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(req)
}

func (s *Server) listRequests(c *fiber.Ctx) error {
	requests, err := s.svc.Negotiation.ListRequests(c.UserContext(), currentActor(c))
	if err != nil {
		return err
	}
	if requests == nil {
		requests = []*model.Request{}
	}
	return c.JSON(requests)
}

func (s *Server) getRequest(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	req, err := s.svc.Negotiation.GetRequest(c.UserContext(), currentActor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(req)
}

func (s *Server) acceptRequest(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var body acceptBody
	if len(c.Body()) > 0 {
		if err := s.bind(c, &body); err != nil {
			return err
		}
	}
	req, proposal, err := s.svc.Negotiation.AcceptRequest(c.UserContext(), currentActor(c), id, body.Slots, body.Auto)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"request": req, "proposal": proposal})
}

func (s *Server) rejectRequest(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	req, err := s.svc.Negotiation.RejectRequest(c.UserContext(), currentActor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(req)
}

// ============ Предложения ============

type openProposalBody struct {
	StudentID int64                   `json:"student_id" validate:"required,gt=0"`
	Slots     []availability.Interval `json:"slots"`
}

type slotsBody struct {
	Slots []availability.Interval `json:"slots"`
}

type selectBody struct {
	Slot *availability.Interval `json:"slot"`
}

func (s *Server) openProposal(c *fiber.Ctx) error {
	var body openProposalBody
	if err := s.bind(c, &body); err != nil {
		return err
	}
	p, err := s.svc.Negotiation.OpenProposal(c.UserContext(), currentActor(c), body.StudentID, body.Slots)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (s *Server) listProposals(c *fiber.Ctx) error {
	proposals, err := s.svc.Negotiation.ListProposals(c.UserContext(), currentActor(c))
	if err != nil {
		return err
	}
	if proposals == nil {
		proposals = []*model.Proposal{}
	}
	return c.JSON(proposals)
}

func (s *Server) getProposal(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	p, err := s.svc.Negotiation.GetProposal(c.UserContext(), currentActor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (s *Server) proposeSlots(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var body slotsBody
	if err := s.bind(c, &body); err != nil {
		return err
	}
	p, err := s.svc.Negotiation.ProposeSlots(c.UserContext(), currentActor(c), id, body.Slots)
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (s *Server) selectSlot(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var body selectBody
	if err := s.bind(c, &body); err != nil {
		return err
	}
	if body.Slot == nil {
		return apperr.MalformedSlot("slot is required")
	}
	p, err := s.svc.Negotiation.SelectSlot(c.UserContext(), currentActor(c), id, *body.Slot)
	if err != nil {
		return err
	}
	return c.JSON(p)
}

func (s *Server) confirmProposal(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	p, meeting, err := s.svc.Negotiation.ConfirmProposal(c.UserContext(), currentActor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"proposal": p, "meeting": meeting})
}

func (s *Server) cancelProposal(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	p, err := s.svc.Negotiation.CancelProposal(c.UserContext(), currentActor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(p)
}
