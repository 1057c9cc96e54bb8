package negotiation

import "github.com/Freeeeeet/mentor_match/internal/model"

// Event is emitted by a successful transition and consumed by the dispatcher.
// Entity pointers refer to the values the transition produced, so identifiers
// assigned on insert are visible to consumers.
type Event interface {
	EventName() string
	// Participants lists the users the event concerns.
	Participants() []int64
}

const (
	EventRequestCreated       = "request_created"
	EventRequestReopened      = "request_reopened"
	EventRequestAccepted      = "request_accepted"
	EventRequestRejected      = "request_rejected"
	EventSlotsProposed        = "slots_proposed"
	EventSlotChosen           = "slot_chosen"
	EventProposalConfirmed    = "proposal_confirmed"
	EventProposalCancelled    = "proposal_cancelled"
	EventMeetingStatusChanged = "meeting_status_changed"
)

type RequestCreated struct {
	Request *model.Request
}

type RequestReopened struct {
	Request *model.Request
}

type RequestAccepted struct {
	Request  *model.Request
	Proposal *model.Proposal
}

type RequestRejected struct {
	Request *model.Request
}

type SlotsProposed struct {
	Proposal *model.Proposal
}

type SlotChosen struct {
	Proposal *model.Proposal
}

type ProposalConfirmed struct {
	Proposal *model.Proposal
	Meeting  *model.Meeting
}

type ProposalCancelled struct {
	Proposal *model.Proposal
	ByUserID int64
}

type MeetingStatusChanged struct {
	Meeting  *model.Meeting
	From     model.MeetingStatus
	ByUserID int64
}

func (RequestCreated) EventName() string       { return EventRequestCreated }
func (RequestReopened) EventName() string      { return EventRequestReopened }
func (RequestAccepted) EventName() string      { return EventRequestAccepted }
func (RequestRejected) EventName() string      { return EventRequestRejected }
func (SlotsProposed) EventName() string        { return EventSlotsProposed }
func (SlotChosen) EventName() string           { return EventSlotChosen }
func (ProposalConfirmed) EventName() string    { return EventProposalConfirmed }
func (ProposalCancelled) EventName() string    { return EventProposalCancelled }
func (MeetingStatusChanged) EventName() string { return EventMeetingStatusChanged }

func (e RequestCreated) Participants() []int64 {
	return []int64{e.Request.StudentID, e.Request.MentorID}
}

func (e RequestReopened) Participants() []int64 {
	return []int64{e.Request.StudentID, e.Request.MentorID}
}

func (e RequestAccepted) Participants() []int64 {
	return []int64{e.Request.StudentID, e.Request.MentorID}
}

func (e RequestRejected) Participants() []int64 {
	return []int64{e.Request.StudentID, e.Request.MentorID}
}

func (e SlotsProposed) Participants() []int64 {
	return []int64{e.Proposal.StudentID, e.Proposal.MentorID}
}

func (e SlotChosen) Participants() []int64 {
	return []int64{e.Proposal.StudentID, e.Proposal.MentorID}
}

func (e ProposalConfirmed) Participants() []int64 {
	return []int64{e.Proposal.StudentID, e.Proposal.MentorID}
}

func (e ProposalCancelled) Participants() []int64 {
	return []int64{e.Proposal.StudentID, e.Proposal.MentorID}
}

func (e MeetingStatusChanged) Participants() []int64 {
	return []int64{e.Meeting.StudentID, e.Meeting.MentorID}
}
