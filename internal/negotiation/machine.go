// Package negotiation holds the Request -> Proposal -> Meeting state machine.
//
// Every transition is a pure function: it takes the acting user and the current
// entity, never mutates its input, and returns freshly built values plus the
// event describing what happened. Persisting the result atomically is the
// caller's job.
package negotiation

import (
	"slices"
	"strings"
	"time"

	"github.com/Freeeeeet/mentor_match/internal/apperr"
	"github.com/Freeeeeet/mentor_match/internal/availability"
	"github.com/Freeeeeet/mentor_match/internal/model"
)

// Actor is the authenticated user performing a transition.
type Actor struct {
	UserID int64
	Role   model.Role
}

// ActorOf builds an Actor from a stored user.
func ActorOf(u *model.User) Actor {
	return Actor{UserID: u.ID, Role: u.Role}
}

// ============ Requests ============

// CreateRequest opens a Request from a student to a mentor. existing is the
// stored Request for the same pair, if any. A rejected pair is reopened only
// when allowReopen is set; anything else is a duplicate.
func CreateRequest(actor Actor, mentor *model.User, existing *model.Request, message string, allowReopen bool, now time.Time) (*model.Request, Event, error) {
	if actor.Role != model.RoleStudent {
		return nil, nil, apperr.Forbidden("only students can send requests")
	}
	if mentor == nil {
		return nil, nil, apperr.NotFound("mentor not found")
	}
	if mentor.ID == actor.UserID {
		return nil, nil, apperr.Validation("cannot send a request to yourself")
	}
	if !mentor.IsMentor() {
		return nil, nil, apperr.Validation("user %d is not a mentor", mentor.ID)
	}

	message = strings.TrimSpace(message)

	if existing != nil {
		if existing.IsRejected() && allowReopen {
			reopened := *existing
			reopened.Status = model.RequestStatusPending
			reopened.Message = message
			reopened.UpdatedAt = &now
			return &reopened, RequestReopened{Request: &reopened}, nil
		}
		return nil, nil, apperr.DuplicateRequest("request to mentor %d already exists", mentor.ID)
	}

	req := &model.Request{
		StudentID: actor.UserID,
		MentorID:  mentor.ID,
		Message:   message,
		Status:    model.RequestStatusPending,
		CreatedAt: now,
	}
	return req, RequestCreated{Request: req}, nil
}

// AcceptRequest moves a pending Request to accepted and spawns its Proposal.
// With no slots the Proposal waits for the mentor; with slots it is offered
// to the student right away.
func AcceptRequest(actor Actor, req *model.Request, slots []availability.Interval, now time.Time) (*model.Request, *model.Proposal, RequestAccepted, error) {
	if req.MentorID != actor.UserID {
		return nil, nil, RequestAccepted{}, apperr.Forbidden("only the mentor can accept request %d", req.ID)
	}
	if !req.IsPending() {
		return nil, nil, RequestAccepted{}, apperr.InvalidTransition("request %d is %s, expected pending", req.ID, req.Status)
	}

	status := model.ProposalStatusAwaitingMentor
	var offered []availability.Interval
	if len(slots) > 0 {
		var err error
		offered, err = normalizeSlots(slots)
		if err != nil {
			return nil, nil, RequestAccepted{}, err
		}
		status = model.ProposalStatusPending
	}

	accepted := *req
	accepted.Status = model.RequestStatusAccepted
	accepted.UpdatedAt = &now

	requestID := req.ID
	proposal := &model.Proposal{
		RequestID: &requestID,
		MentorID:  req.MentorID,
		StudentID: req.StudentID,
		Slots:     offered,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if proposal.Slots == nil {
		proposal.Slots = []availability.Interval{}
	}

	return &accepted, proposal, RequestAccepted{Request: &accepted, Proposal: proposal}, nil
}

// RejectRequest moves a pending Request to rejected.
func RejectRequest(actor Actor, req *model.Request, now time.Time) (*model.Request, RequestRejected, error) {
	if req.MentorID != actor.UserID {
		return nil, RequestRejected{}, apperr.Forbidden("only the mentor can reject request %d", req.ID)
	}
	if !req.IsPending() {
		return nil, RequestRejected{}, apperr.InvalidTransition("request %d is %s, expected pending", req.ID, req.Status)
	}

	rejected := *req
	rejected.Status = model.RequestStatusRejected
	rejected.UpdatedAt = &now
	return &rejected, RequestRejected{Request: &rejected}, nil
}

// ============ Proposals ============

// OpenProposal lets a mentor offer slots to a student without a prior Request.
func OpenProposal(actor Actor, student *model.User, slots []availability.Interval, now time.Time) (*model.Proposal, SlotsProposed, error) {
	if actor.Role != model.RoleMentor {
		return nil, SlotsProposed{}, apperr.Forbidden("only mentors can propose slots")
	}
	if student == nil {
		return nil, SlotsProposed{}, apperr.NotFound("student not found")
	}
	if !student.IsStudent() || student.ID == actor.UserID {
		return nil, SlotsProposed{}, apperr.Validation("user %d is not a student", student.ID)
	}
	offered, err := requireSlots(slots)
	if err != nil {
		return nil, SlotsProposed{}, err
	}

	proposal := &model.Proposal{
		MentorID:  actor.UserID,
		StudentID: student.ID,
		Slots:     offered,
		Status:    model.ProposalStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return proposal, SlotsProposed{Proposal: proposal}, nil
}

// ProposeSlots replaces the offered slots. Allowed until the student has chosen.
func ProposeSlots(actor Actor, p *model.Proposal, slots []availability.Interval, now time.Time) (*model.Proposal, SlotsProposed, error) {
	if p.MentorID != actor.UserID {
		return nil, SlotsProposed{}, apperr.Forbidden("only the mentor can propose slots for proposal %d", p.ID)
	}
	if !p.IsAwaitingMentor() && !p.IsPending() {
		return nil, SlotsProposed{}, apperr.InvalidTransition("proposal %d is %s, slots can no longer change", p.ID, p.Status)
	}
	offered, err := requireSlots(slots)
	if err != nil {
		return nil, SlotsProposed{}, err
	}

	updated := p.Clone()
	updated.Slots = offered
	updated.Status = model.ProposalStatusPending
	updated.UpdatedAt = now
	return &updated, SlotsProposed{Proposal: &updated}, nil
}

// SelectSlot records the student's choice. The choice must be one of the offered slots.
func SelectSlot(actor Actor, p *model.Proposal, chosen availability.Interval, now time.Time) (*model.Proposal, SlotChosen, error) {
	if p.StudentID != actor.UserID {
		return nil, SlotChosen{}, apperr.Forbidden("only the student can choose a slot for proposal %d", p.ID)
	}
	if !p.IsAwaitingMentor() && !p.IsPending() {
		return nil, SlotChosen{}, apperr.InvalidTransition("proposal %d is %s, a slot can no longer be chosen", p.ID, p.Status)
	}
	if err := chosen.Validate(); err != nil {
		return nil, SlotChosen{}, err
	}
	idx := availability.IndexOf(p.Slots, chosen)
	if idx < 0 {
		return nil, SlotChosen{}, apperr.SlotNotOffered("slot %s is not offered in proposal %d", chosen, p.ID)
	}

	updated := p.Clone()
	slot := updated.Slots[idx]
	updated.ChosenSlot = &slot
	updated.Status = model.ProposalStatusStudentChosen
	updated.UpdatedAt = now
	return &updated, SlotChosen{Proposal: &updated}, nil
}

// CheckConfirm reports whether actor may confirm p right now.
func CheckConfirm(actor Actor, p *model.Proposal) error {
	if p.MentorID != actor.UserID {
		return apperr.Forbidden("only the mentor can confirm proposal %d", p.ID)
	}
	if !p.IsStudentChosen() || p.ChosenSlot == nil {
		return apperr.InvalidTransition("proposal %d is %s, expected student_chosen", p.ID, p.Status)
	}
	return nil
}

// ConfirmProposal finalizes the student's choice and materializes the Meeting.
func ConfirmProposal(actor Actor, p *model.Proposal, meetLink string, now time.Time) (*model.Proposal, *model.Meeting, ProposalConfirmed, error) {
	if err := CheckConfirm(actor, p); err != nil {
		return nil, nil, ProposalConfirmed{}, err
	}

	updated := p.Clone()
	updated.Status = model.ProposalStatusConfirmed
	updated.UpdatedAt = now

	proposalID := p.ID
	meeting := &model.Meeting{
		ProposalID: &proposalID,
		MentorID:   p.MentorID,
		StudentID:  p.StudentID,
		Start:      p.ChosenSlot.Start,
		End:        p.ChosenSlot.End,
		Status:     model.MeetingStatusScheduled,
		MeetLink:   meetLink,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return &updated, meeting, ProposalConfirmed{Proposal: &updated, Meeting: meeting}, nil
}

// CancelProposal withdraws an open proposal. Either participant may cancel.
func CancelProposal(actor Actor, p *model.Proposal, now time.Time) (*model.Proposal, ProposalCancelled, error) {
	if !p.IsParticipant(actor.UserID) {
		return nil, ProposalCancelled{}, apperr.Forbidden("user %d is not a participant of proposal %d", actor.UserID, p.ID)
	}
	if !p.IsOpen() {
		return nil, ProposalCancelled{}, apperr.InvalidTransition("proposal %d is %s and cannot be cancelled", p.ID, p.Status)
	}

	updated := p.Clone()
	updated.Status = model.ProposalStatusCancelled
	updated.UpdatedAt = now
	return &updated, ProposalCancelled{Proposal: &updated, ByUserID: actor.UserID}, nil
}

// ============ Meetings ============

// meetingTransitions lists legal source states per target state.
var meetingTransitions = map[model.MeetingStatus][]model.MeetingStatus{
	model.MeetingStatusConfirmed: {model.MeetingStatusScheduled},
	model.MeetingStatusCompleted: {model.MeetingStatusScheduled, model.MeetingStatusConfirmed},
	model.MeetingStatusCancelled: {model.MeetingStatusScheduled, model.MeetingStatusConfirmed},
}

// ChangeMeetingStatus moves a meeting along its lifecycle. Only the mentor
// confirms or completes; either participant may cancel.
func ChangeMeetingStatus(actor Actor, m *model.Meeting, to model.MeetingStatus, now time.Time) (*model.Meeting, MeetingStatusChanged, error) {
	if !m.IsParticipant(actor.UserID) {
		return nil, MeetingStatusChanged{}, apperr.Forbidden("user %d is not a participant of meeting %d", actor.UserID, m.ID)
	}
	sources, ok := meetingTransitions[to]
	if !ok {
		return nil, MeetingStatusChanged{}, apperr.Validation("unsupported meeting status %q", to)
	}
	if to != model.MeetingStatusCancelled && m.MentorID != actor.UserID {
		return nil, MeetingStatusChanged{}, apperr.Forbidden("only the mentor can mark meeting %d as %s", m.ID, to)
	}
	if !slices.Contains(sources, m.Status) {
		return nil, MeetingStatusChanged{}, apperr.InvalidTransition("meeting %d is %s, cannot become %s", m.ID, m.Status, to)
	}

	updated := *m
	updated.Status = to
	updated.UpdatedAt = now
	return &updated, MeetingStatusChanged{Meeting: &updated, From: m.Status, ByUserID: actor.UserID}, nil
}

// ============ helpers ============

func requireSlots(slots []availability.Interval) ([]availability.Interval, error) {
	if len(slots) == 0 {
		return nil, apperr.MalformedSlot("at least one slot is required")
	}
	return normalizeSlots(slots)
}

// normalizeSlots validates every slot, converts to UTC, sorts and drops exact duplicates.
func normalizeSlots(slots []availability.Interval) ([]availability.Interval, error) {
	out := make([]availability.Interval, 0, len(slots))
	for _, s := range slots {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		s = availability.New(s.Start, s.End)
		if availability.IndexOf(out, s) >= 0 {
			continue
		}
		out = append(out, s)
	}
	slices.SortStableFunc(out, func(a, b availability.Interval) int {
		return a.Start.Compare(b.Start)
	})
	return out, nil
}
