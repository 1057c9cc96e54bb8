package model

import (
	"time"

	"github.com/Freeeeeet/mentor_match/internal/availability"
)

type ProposalStatus string

const (
	ProposalStatusAwaitingMentor ProposalStatus = "awaiting_mentor" // Заявка принята, слотов ещё нет
	ProposalStatusPending        ProposalStatus = "pending"         // Слоты предложены студенту
	ProposalStatusStudentChosen  ProposalStatus = "student_chosen"  // Студент выбрал слот
	ProposalStatusConfirmed      ProposalStatus = "confirmed"       // Ментор подтвердил, встреча создана
	ProposalStatusCancelled      ProposalStatus = "cancelled"
)

// Proposal набор слотов, предложенных ментором студенту
type Proposal struct {
	ID         int64                   `json:"id"`
	RequestID  *int64                  `json:"request_id"`
	MentorID   int64                   `json:"mentor_id"`
	StudentID  int64                   `json:"student_id"`
	Slots      []availability.Interval `json:"slots"`
	Status     ProposalStatus          `json:"status"`
	ChosenSlot *availability.Interval  `json:"chosen_slot"`
	CreatedAt  time.Time               `json:"created_at"`
	UpdatedAt  time.Time               `json:"updated_at"`
}

func (p *Proposal) IsAwaitingMentor() bool {
	return p.Status == ProposalStatusAwaitingMentor
}

func (p *Proposal) IsPending() bool {
	return p.Status == ProposalStatusPending
}

func (p *Proposal) IsStudentChosen() bool {
	return p.Status == ProposalStatusStudentChosen
}

// IsOpen проверяет, что переговоры ещё идут
func (p *Proposal) IsOpen() bool {
	switch p.Status {
	case ProposalStatusAwaitingMentor, ProposalStatusPending, ProposalStatusStudentChosen:
		return true
	}
	return false
}

func (p *Proposal) IsParticipant(userID int64) bool {
	return p.StudentID == userID || p.MentorID == userID
}

// Clone возвращает копию со своими срезами
func (p Proposal) Clone() Proposal {
	if p.Slots != nil {
		p.Slots = append([]availability.Interval(nil), p.Slots...)
	}
	if p.ChosenSlot != nil {
		chosen := *p.ChosenSlot
		p.ChosenSlot = &chosen
	}
	if p.RequestID != nil {
		requestID := *p.RequestID
		p.RequestID = &requestID
	}
	return p
}
