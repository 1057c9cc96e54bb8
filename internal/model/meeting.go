package model

import "time"

type MeetingStatus string

const (
	MeetingStatusScheduled MeetingStatus = "scheduled"
	MeetingStatusConfirmed MeetingStatus = "confirmed"
	MeetingStatusCancelled MeetingStatus = "cancelled"
	MeetingStatusCompleted MeetingStatus = "completed"
)

// Valid проверяет, что статус известен
func (s MeetingStatus) Valid() bool {
	switch s {
	case MeetingStatusScheduled, MeetingStatusConfirmed, MeetingStatusCancelled, MeetingStatusCompleted:
		return true
	}
	return false
}

// Meeting встреча, созданная из подтверждённого предложения
type Meeting struct {
	ID         int64         `json:"id"`
	ProposalID *int64        `json:"proposal_id"`
	MentorID   int64         `json:"mentor_id"`
	StudentID  int64         `json:"student_id"`
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end"`
	Status     MeetingStatus `json:"status"`
	MeetLink   string        `json:"meet_link"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

func (m *Meeting) IsParticipant(userID int64) bool {
	return m.StudentID == userID || m.MentorID == userID
}

// IsFinished проверяет терминальные статусы
func (m *Meeting) IsFinished() bool {
	return m.Status == MeetingStatusCancelled || m.Status == MeetingStatusCompleted
}
