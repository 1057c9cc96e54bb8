package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/mentor_match/internal/apperr"
	"github.com/Freeeeeet/mentor_match/internal/model"
	"github.com/Freeeeeet/mentor_match/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

const meetingColumns = `id, proposal_id, mentor_id, student_id, start_at, end_at, status, meet_link, created_at, updated_at`

type MeetingRepository struct {
	base.Repository
}

func NewMeetingRepository(db base.DBTX) *MeetingRepository {
	return &MeetingRepository{Repository: base.NewRepository(db)}
}

func scanMeeting(row pgx.Row) (*model.Meeting, error) {
	var m model.Meeting
	err := row.Scan(
		&m.ID,
		&m.ProposalID,
		&m.MentorID,
		&m.StudentID,
		&m.Start,
		&m.End,
		&m.Status,
		&m.MeetLink,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Start = m.Start.UTC()
	m.End = m.End.UTC()
	return &m, nil
}

// Create создаёт встречу. На одно предложение допускается одна встреча.
func (r *MeetingRepository) Create(ctx context.Context, m *model.Meeting) error {
	query := `
		INSERT INTO meetings (proposal_id, mentor_id, student_id, start_at, end_at, status, meet_link, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := r.DB().QueryRow(
		ctx, query,
		m.ProposalID,
		m.MentorID,
		m.StudentID,
		m.Start,
		m.End,
		m.Status,
		m.MeetLink,
		m.CreatedAt,
		m.UpdatedAt,
	).Scan(&m.ID)

	if err != nil {
		if base.IsUniqueViolation(err) {
			return apperr.InvalidTransition("proposal already has a meeting")
		}
		return fmt.Errorf("create meeting: %w", err)
	}

	return nil
}

// GetByID получает встречу по ID
func (r *MeetingRepository) GetByID(ctx context.Context, id int64) (*model.Meeting, error) {
	return r.getOne(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = $1`, id)
}

// GetByIDForUpdate получает встречу и блокирует строку
func (r *MeetingRepository) GetByIDForUpdate(ctx context.Context, id int64) (*model.Meeting, error) {
	return r.getOne(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = $1 FOR UPDATE`, id)
}

func (r *MeetingRepository) getOne(ctx context.Context, query string, id int64) (*model.Meeting, error) {
	m, err := scanMeeting(r.DB().QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get meeting: %w", err)
	}
	return m, nil
}

// ListByUser получает встречи пользователя по возрастанию времени начала
func (r *MeetingRepository) ListByUser(ctx context.Context, userID int64) ([]*model.Meeting, error) {
	query := `
		SELECT ` + meetingColumns + `
		FROM meetings
		WHERE student_id = $1 OR mentor_id = $1
		ORDER BY start_at ASC
	`

	rows, err := r.DB().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}

	meetings, err := base.CollectRows(rows, scanMeeting)
	if err != nil {
		return nil, fmt.Errorf("scan meetings: %w", err)
	}

	return meetings, nil
}

// UpdateStatus меняет статус, если он всё ещё равен expected
func (r *MeetingRepository) UpdateStatus(ctx context.Context, m *model.Meeting, expected model.MeetingStatus) error {
	query := `
		UPDATE meetings
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`

	affected, err := r.ExecAffected(ctx, query, m.Status, m.UpdatedAt, m.ID, expected)
	if err != nil {
		return fmt.Errorf("update meeting status: %w", err)
	}

	if affected == 0 {
		return apperr.InvalidTransition("meeting %d is no longer %s", m.ID, expected)
	}

	return nil
}

// SetLinkIfEmpty сохраняет ссылку, только если она ещё не задана, и возвращает итоговую
func (r *MeetingRepository) SetLinkIfEmpty(ctx context.Context, meetingID int64, link string) (string, error) {
	query := `
		UPDATE meetings
		SET meet_link = CASE WHEN meet_link = '' THEN $1 ELSE meet_link END,
		    updated_at = CASE WHEN meet_link = '' THEN now() ELSE updated_at END
		WHERE id = $2
		RETURNING meet_link
	`

	var stored string
	err := r.DB().QueryRow(ctx, query, link, meetingID).Scan(&stored)
	if err != nil {
		if base.IsNotFound(err) {
			return "", fmt.Errorf("meeting not found")
		}
		return "", fmt.Errorf("set meeting link: %w", err)
	}

	return stored, nil
}
