package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/mentor_match/internal/apperr"
	"github.com/Freeeeeet/mentor_match/internal/availability"
	"github.com/Freeeeeet/mentor_match/internal/calendar"
	"github.com/Freeeeeet/mentor_match/internal/model"
	"github.com/Freeeeeet/mentor_match/internal/negotiation"
	"github.com/Freeeeeet/mentor_match/internal/store"
	"go.uber.org/zap"
)

// EventSink принимает события после коммита транзакции. Publish не должен блокировать.
type EventSink interface {
	Publish(events ...negotiation.Event)
}

// NegotiationOptions настройки переговоров
type NegotiationOptions struct {
	// AllowReopen разрешает студенту повторно отправить отклонённую заявку
	AllowReopen bool
}

type NegotiationService struct {
	store        store.Store
	availability *AvailabilityService
	links        *calendar.Resolver
	events       EventSink
	opts         NegotiationOptions
	now          func() time.Time
	logger       *zap.Logger
}

func NewNegotiationService(
	st store.Store,
	availabilityService *AvailabilityService,
	links *calendar.Resolver,
	events EventSink,
	opts NegotiationOptions,
	logger *zap.Logger,
) *NegotiationService {
	return &NegotiationService{
		store:        st,
		availability: availabilityService,
		links:        links,
		events:       events,
		opts:         opts,
		now:          func() time.Time { return time.Now().UTC() },
		logger:       logger,
	}
}

// ============ Заявки ============

// CreateRequest отправляет заявку ментору от имени студента
func (s *NegotiationService) CreateRequest(ctx context.Context, actor negotiation.Actor, mentorID int64, message string) (*model.Request, error) {
	var (
		req   *model.Request
		event negotiation.Event
	)

	err := s.store.InTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		mentor, err := repos.Users.GetByID(ctx, mentorID)
		if err != nil {
			return fmt.Errorf("get mentor: %w", err)
		}
		existing, err := repos.Requests.GetByPair(ctx, actor.UserID, mentorID)
		if err != nil {
			return fmt.Errorf("get request by pair: %w", err)
		}

		req, event, err = negotiation.CreateRequest(actor, mentor, existing, message, s.opts.AllowReopen, s.now())
		if err != nil {
			return err
		}

		if existing != nil {
			return repos.Requests.Update(ctx, req, model.RequestStatusRejected)
		}
		return repos.Requests.Create(ctx, req)
	})
	if err != nil {
		s.logger.Warn("Failed to create request",
			zap.Int64("student_id", actor.UserID),
			zap.Int64("mentor_id", mentorID),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("Request created",
		zap.Int64("request_id", req.ID),
		zap.Int64("student_id", req.StudentID),
		zap.Int64("mentor_id", req.MentorID),
		zap.String("event", event.EventName()),
	)

	s.events.Publish(event)
	return req, nil
}

// AcceptRequest принимает заявку. Без слотов предложение ждёт, пока ментор их укажет.
// auto подбирает слоты по пересечению доступности, если явные слоты не переданы.
func (s *NegotiationService) AcceptRequest(ctx context.Context, actor negotiation.Actor, requestID int64, slots []availability.Interval, auto bool) (*model.Request, *model.Proposal, error) {
	if auto && len(slots) == 0 {
		derived, err := s.deriveSlots(ctx, actor, requestID)
		if err != nil {
			return nil, nil, err
		}
		slots = derived
	}

	var (
		accepted *model.Request
		proposal *model.Proposal
		event    negotiation.RequestAccepted
	)

	err := s.store.InTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		req, err := repos.Requests.GetByIDForUpdate(ctx, requestID)
		if err != nil {
			return fmt.Errorf("get request: %w", err)
		}
		if req == nil {
			return apperr.NotFound("request %d not found", requestID)
		}

		accepted, proposal, event, err = negotiation.AcceptRequest(actor, req, slots, s.now())
		if err != nil {
			return err
		}

		if err := repos.Requests.Update(ctx, accepted, model.RequestStatusPending); err != nil {
			return err
		}
		return repos.Proposals.Create(ctx, proposal)
	})
	if err != nil {
		s.logger.Warn("Failed to accept request",
			zap.Int64("request_id", requestID),
			zap.Int64("actor_id", actor.UserID),
			zap.Error(err),
		)
		return nil, nil, err
	}

	s.logger.Info("Request accepted",
		zap.Int64("request_id", accepted.ID),
		zap.Int64("proposal_id", proposal.ID),
		zap.String("proposal_status", string(proposal.Status)),
		zap.Int("slots", len(proposal.Slots)),
	)

	s.events.Publish(event)
	return accepted, proposal, nil
}

// deriveSlots подбирает общие слоты ментора и студента заявки.
// Проверки прав и статуса выполняет сам переход.
func (s *NegotiationService) deriveSlots(ctx context.Context, actor negotiation.Actor, requestID int64) ([]availability.Interval, error) {
	req, err := s.store.Repos().Requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	if req == nil {
		return nil, apperr.NotFound("request %d not found", requestID)
	}
	if req.MentorID != actor.UserID {
		return nil, nil
	}
	return s.availability.CommonSlots(ctx, req.MentorID, req.StudentID, s.availability.DefaultMatch())
}

// RejectRequest отклоняет заявку
func (s *NegotiationService) RejectRequest(ctx context.Context, actor negotiation.Actor, requestID int64) (*model.Request, error) {
	var (
		rejected *model.Request
		event    negotiation.RequestRejected
	)

	err := s.store.InTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		req, err := repos.Requests.GetByIDForUpdate(ctx, requestID)
		if err != nil {
			return fmt.Errorf("get request: %w", err)
		}
		if req == nil {
			return apperr.NotFound("request %d not found", requestID)
		}

		rejected, event, err = negotiation.RejectRequest(actor, req, s.now())
		if err != nil {
			return err
		}
		return repos.Requests.Update(ctx, rejected, model.RequestStatusPending)
	})
	if err != nil {
		s.logger.Warn("Failed to reject request",
			zap.Int64("request_id", requestID),
			zap.Int64("actor_id", actor.UserID),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("Request rejected", zap.Int64("request_id", rejected.ID))

	s.events.Publish(event)
	return rejected, nil
}

// ListRequests возвращает заявки, где пользователь студент или ментор
func (s *NegotiationService) ListRequests(ctx context.Context, actor negotiation.Actor) ([]*model.Request, error) {
	requests, err := s.store.Repos().Requests.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return requests, nil
}

// GetRequest возвращает заявку участнику
func (s *NegotiationService) GetRequest(ctx context.Context, actor negotiation.Actor, requestID int64) (*model.Request, error) {
	req, err := s.store.Repos().Requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	if req == nil {
		return nil, apperr.NotFound("request %d not found", requestID)
	}
	if !req.IsParticipant(actor.UserID) {
		return nil, apperr.Forbidden("user %d is not a participant of request %d", actor.UserID, requestID)
	}
	return req, nil
}

// ============ Предложения ============

// OpenProposal создаёт предложение ментора студенту без заявки
func (s *NegotiationService) OpenProposal(ctx context.Context, actor negotiation.Actor, studentID int64, slots []availability.Interval) (*model.Proposal, error) {
	var (
		proposal *model.Proposal
		event    negotiation.SlotsProposed
	)

	err := s.store.InTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		student, err := repos.Users.GetByID(ctx, studentID)
		if err != nil {
			return fmt.Errorf("get student: %w", err)
		}

		proposal, event, err = negotiation.OpenProposal(actor, student, slots, s.now())
		if err != nil {
			return err
		}
		return repos.Proposals.Create(ctx, proposal)
	})
	if err != nil {
		s.logger.Warn("Failed to open proposal",
			zap.Int64("mentor_id", actor.UserID),
			zap.Int64("student_id", studentID),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("Proposal opened",
		zap.Int64("proposal_id", proposal.ID),
		zap.Int64("mentor_id", proposal.MentorID),
		zap.Int64("student_id", proposal.StudentID),
		zap.Int("slots", len(proposal.Slots)),
	)

	s.events.Publish(event)
	return proposal, nil
}

// ProposeSlots заменяет предложенные ментором слоты
func (s *NegotiationService) ProposeSlots(ctx context.Context, actor negotiation.Actor, proposalID int64, slots []availability.Interval) (*model.Proposal, error) {
	var (
		updated *model.Proposal
		event   negotiation.SlotsProposed
	)

	err := s.store.InTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		p, err := s.lockProposal(ctx, repos, proposalID)
		if err != nil {
			return err
		}

		updated, event, err = negotiation.ProposeSlots(actor, p, slots, s.now())
		if err != nil {
			return err
		}
		return repos.Proposals.Update(ctx, updated, p.Status)
	})
	if err != nil {
		s.logger.Warn("Failed to propose slots",
			zap.Int64("proposal_id", proposalID),
			zap.Int64("actor_id", actor.UserID),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("Slots proposed",
		zap.Int64("proposal_id", updated.ID),
		zap.Int("slots", len(updated.Slots)),
	)

	s.events.Publish(event)
	return updated, nil
}

// SelectSlot фиксирует выбор студента
func (s *NegotiationService) SelectSlot(ctx context.Context, actor negotiation.Actor, proposalID int64, slot availability.Interval) (*model.Proposal, error) {
	var (
		updated *model.Proposal
		event   negotiation.SlotChosen
	)

	err := s.store.InTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		p, err := s.lockProposal(ctx, repos, proposalID)
		if err != nil {
			return err
		}

		updated, event, err = negotiation.SelectSlot(actor, p, slot, s.now())
		if err != nil {
			return err
		}
		return repos.Proposals.Update(ctx, updated, p.Status)
	})
	if err != nil {
		s.logger.Warn("Failed to select slot",
			zap.Int64("proposal_id", proposalID),
			zap.Int64("actor_id", actor.UserID),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("Slot chosen",
		zap.Int64("proposal_id", updated.ID),
		zap.String("slot", updated.ChosenSlot.String()),
	)

	s.events.Publish(event)
	return updated, nil
}

// ConfirmProposal подтверждает выбранный слот и создаёт встречу.
// Ссылка на звонок запрашивается до транзакции, сбой календаря заменяется заглушкой.
func (s *NegotiationService) ConfirmProposal(ctx context.Context, actor negotiation.Actor, proposalID int64) (*model.Proposal, *model.Meeting, error) {
	current, err := s.getProposal(ctx, proposalID)
	if err != nil {
		return nil, nil, err
	}
	if err := negotiation.CheckConfirm(actor, current); err != nil {
		return nil, nil, err
	}

	link := s.links.Link(ctx, s.eventInput(ctx, current))

	var (
		confirmed *model.Proposal
		meeting   *model.Meeting
		event     negotiation.ProposalConfirmed
	)

	err = s.store.InTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		p, err := s.lockProposal(ctx, repos, proposalID)
		if err != nil {
			return err
		}

		confirmed, meeting, event, err = negotiation.ConfirmProposal(actor, p, link, s.now())
		if err != nil {
			return err
		}
		if err := repos.Proposals.Update(ctx, confirmed, model.ProposalStatusStudentChosen); err != nil {
			return err
		}
		return repos.Meetings.Create(ctx, meeting)
	})
	if err != nil {
		s.logger.Warn("Failed to confirm proposal",
			zap.Int64("proposal_id", proposalID),
			zap.Int64("actor_id", actor.UserID),
			zap.Error(err),
		)
		return nil, nil, err
	}

	s.logger.Info("Proposal confirmed",
		zap.Int64("proposal_id", confirmed.ID),
		zap.Int64("meeting_id", meeting.ID),
		zap.Time("start", meeting.Start),
		zap.String("meet_link", meeting.MeetLink),
	)

	s.events.Publish(event)
	return confirmed, meeting, nil
}

// eventInput собирает данные события календаря. Ошибки чтения участников
// не мешают подтверждению, событие просто создаётся без приглашённых.
func (s *NegotiationService) eventInput(ctx context.Context, p *model.Proposal) calendar.EventInput {
	in := calendar.EventInput{
		Summary: "Meeting",
		Start:   p.ChosenSlot.Start,
		End:     p.ChosenSlot.End,
	}

	repos := s.store.Repos()
	if p.RequestID != nil {
		req, err := repos.Requests.GetByID(ctx, *p.RequestID)
		if err != nil {
			s.logger.Warn("Failed to load request for meeting", zap.Int64("proposal_id", p.ID), zap.Error(err))
		} else if req != nil {
			in.Description = req.Message
		}
	}

	users, err := repos.Users.GetByIDs(ctx, []int64{p.MentorID, p.StudentID})
	if err != nil {
		s.logger.Warn("Failed to load meeting participants", zap.Int64("proposal_id", p.ID), zap.Error(err))
		return in
	}
	return withParticipants(in, p.StudentID, p.MentorID, users)
}

// CancelProposal отменяет открытое предложение
func (s *NegotiationService) CancelProposal(ctx context.Context, actor negotiation.Actor, proposalID int64) (*model.Proposal, error) {
	var (
		cancelled *model.Proposal
		event     negotiation.ProposalCancelled
	)

	err := s.store.InTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		p, err := s.lockProposal(ctx, repos, proposalID)
		if err != nil {
			return err
		}

		cancelled, event, err = negotiation.CancelProposal(actor, p, s.now())
		if err != nil {
			return err
		}
		return repos.Proposals.Update(ctx, cancelled, p.Status)
	})
	if err != nil {
		s.logger.Warn("Failed to cancel proposal",
			zap.Int64("proposal_id", proposalID),
			zap.Int64("actor_id", actor.UserID),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("Proposal cancelled",
		zap.Int64("proposal_id", cancelled.ID),
		zap.Int64("by_user_id", actor.UserID),
	)

	s.events.Publish(event)
	return cancelled, nil
}

// ListProposals возвращает предложения пользователя
func (s *NegotiationService) ListProposals(ctx context.Context, actor negotiation.Actor) ([]*model.Proposal, error) {
	proposals, err := s.store.Repos().Proposals.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	return proposals, nil
}

// GetProposal возвращает предложение участнику
func (s *NegotiationService) GetProposal(ctx context.Context, actor negotiation.Actor, proposalID int64) (*model.Proposal, error) {
	p, err := s.getProposal(ctx, proposalID)
	if err != nil {
		return nil, err
	}
	if !p.IsParticipant(actor.UserID) {
		return nil, apperr.Forbidden("user %d is not a participant of proposal %d", actor.UserID, proposalID)
	}
	return p, nil
}

func (s *NegotiationService) getProposal(ctx context.Context, proposalID int64) (*model.Proposal, error) {
	p, err := s.store.Repos().Proposals.GetByID(ctx, proposalID)
	if err != nil {
		return nil, fmt.Errorf("get proposal: %w", err)
	}
	if p == nil {
		return nil, apperr.NotFound("proposal %d not found", proposalID)
	}
	return p, nil
}

func (s *NegotiationService) lockProposal(ctx context.Context, repos store.Repositories, proposalID int64) (*model.Proposal, error) {
	p, err := repos.Proposals.GetByIDForUpdate(ctx, proposalID)
	if err != nil {
		return nil, fmt.Errorf("get proposal: %w", err)
	}
	if p == nil {
		return nil, apperr.NotFound("proposal %d not found", proposalID)
	}
	return p, nil
}

// withParticipants добавляет имена и email участников; организатором считается ментор
func withParticipants(in calendar.EventInput, studentID, mentorID int64, users []*model.User) calendar.EventInput {
	var student, mentor string
	for _, u := range users {
		switch u.ID {
		case studentID:
			student = u.DisplayName()
		case mentorID:
			mentor = u.DisplayName()
			in.Organizer = u.Email
		}
		if u.Email != "" {
			in.Attendees = append(in.Attendees, u.Email)
		}
	}
	if student != "" && mentor != "" {
		in.Summary = fmt.Sprintf("Meeting: %s & %s", student, mentor)
	}
	return in
}
