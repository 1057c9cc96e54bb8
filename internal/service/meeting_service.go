package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/mentor_match/internal/apperr"
	"github.com/Freeeeeet/mentor_match/internal/calendar"
	"github.com/Freeeeeet/mentor_match/internal/model"
	"github.com/Freeeeeet/mentor_match/internal/negotiation"
	"github.com/Freeeeeet/mentor_match/internal/store"
	"go.uber.org/zap"
)

type MeetingService struct {
	store  store.Store
	links  *calendar.Resolver
	events EventSink
	now    func() time.Time
	logger *zap.Logger
}

func NewMeetingService(st store.Store, links *calendar.Resolver, events EventSink, logger *zap.Logger) *MeetingService {
	return &MeetingService{
		store:  st,
		links:  links,
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// List возвращает встречи пользователя
func (s *MeetingService) List(ctx context.Context, actor negotiation.Actor) ([]*model.Meeting, error) {
	meetings, err := s.store.Repos().Meetings.ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	return meetings, nil
}

// Get возвращает встречу участнику
func (s *MeetingService) Get(ctx context.Context, actor negotiation.Actor, meetingID int64) (*model.Meeting, error) {
	m, err := s.store.Repos().Meetings.GetByID(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("get meeting: %w", err)
	}
	if m == nil {
		return nil, apperr.NotFound("meeting %d not found", meetingID)
	}
	if !m.IsParticipant(actor.UserID) {
		return nil, apperr.Forbidden("user %d is not a participant of meeting %d", actor.UserID, meetingID)
	}
	return m, nil
}

// UpdateStatus переводит встречу в новый статус
func (s *MeetingService) UpdateStatus(ctx context.Context, actor negotiation.Actor, meetingID int64, to model.MeetingStatus) (*model.Meeting, error) {
	var (
		updated *model.Meeting
		event   negotiation.MeetingStatusChanged
	)

	err := s.store.InTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		m, err := repos.Meetings.GetByIDForUpdate(ctx, meetingID)
		if err != nil {
			return fmt.Errorf("get meeting: %w", err)
		}
		if m == nil {
			return apperr.NotFound("meeting %d not found", meetingID)
		}

		updated, event, err = negotiation.ChangeMeetingStatus(actor, m, to, s.now())
		if err != nil {
			return err
		}
		return repos.Meetings.UpdateStatus(ctx, updated, m.Status)
	})
	if err != nil {
		s.logger.Warn("Failed to update meeting status",
			zap.Int64("meeting_id", meetingID),
			zap.Int64("actor_id", actor.UserID),
			zap.String("status", string(to)),
			zap.Error(err),
		)
		return nil, err
	}

	s.logger.Info("Meeting status changed",
		zap.Int64("meeting_id", updated.ID),
		zap.String("from", string(event.From)),
		zap.String("to", string(updated.Status)),
	)

	s.events.Publish(event)
	return updated, nil
}

// AddToCalendar создаёт событие в календаре от имени участника.
// Ссылка сохраняется, только если у встречи её ещё нет. Сбой календаря возвращается как ошибка.
func (s *MeetingService) AddToCalendar(ctx context.Context, actor negotiation.Actor, meetingID int64) (*model.Meeting, error) {
	m, err := s.Get(ctx, actor, meetingID)
	if err != nil {
		return nil, err
	}
	if m.IsFinished() {
		return nil, apperr.InvalidTransition("meeting %d is %s", m.ID, m.Status)
	}

	in := calendar.EventInput{
		Summary:     "Meeting",
		Description: fmt.Sprintf("Meeting #%d", m.ID),
		Start:       m.Start,
		End:         m.End,
	}
	users, err := s.store.Repos().Users.GetByIDs(ctx, []int64{m.MentorID, m.StudentID})
	if err != nil {
		return nil, fmt.Errorf("get meeting participants: %w", err)
	}
	in = withParticipants(in, m.StudentID, m.MentorID, users)
	in.Organizer = ""
	for _, u := range users {
		if u.ID == actor.UserID {
			in.Organizer = u.Email
		}
	}

	link, err := s.links.Create(ctx, in)
	if err != nil {
		s.logger.Error("Failed to add meeting to calendar",
			zap.Int64("meeting_id", m.ID),
			zap.Int64("actor_id", actor.UserID),
			zap.Error(err),
		)
		return nil, err
	}

	stored, err := s.store.Repos().Meetings.SetLinkIfEmpty(ctx, m.ID, link)
	if err != nil {
		return nil, fmt.Errorf("set meeting link: %w", err)
	}
	m.MeetLink = stored

	s.logger.Info("Meeting added to calendar",
		zap.Int64("meeting_id", m.ID),
		zap.Int64("actor_id", actor.UserID),
		zap.String("meet_link", stored),
	)

	return m, nil
}
