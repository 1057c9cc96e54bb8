package model

import "time"

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusRejected RequestStatus = "rejected"
)

// Request заявка студента ментору
type Request struct {
	ID        int64         `json:"id"`
	StudentID int64         `json:"student_id"`
	MentorID  int64         `json:"mentor_id"`
	Message   string        `json:"message"`
	Status    RequestStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt *time.Time    `json:"updated_at"`
}

func (r *Request) IsPending() bool {
	return r.Status == RequestStatusPending
}

func (r *Request) IsAccepted() bool {
	return r.Status == RequestStatusAccepted
}

func (r *Request) IsRejected() bool {
	return r.Status == RequestStatusRejected
}

// IsParticipant проверяет, участвует ли пользователь в заявке
func (r *Request) IsParticipant(userID int64) bool {
	return r.StudentID == userID || r.MentorID == userID
}
