package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/mentor_match/internal/apperr"
	"github.com/Freeeeeet/mentor_match/internal/model"
	"github.com/Freeeeeet/mentor_match/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

const requestColumns = `id, student_id, mentor_id, message, status, created_at, updated_at`

type RequestRepository struct {
	base.Repository
}

func NewRequestRepository(db base.DBTX) *RequestRepository {
	return &RequestRepository{Repository: base.NewRepository(db)}
}

func scanRequest(row pgx.Row) (*model.Request, error) {
	var req model.Request
	err := row.Scan(
		&req.ID,
		&req.StudentID,
		&req.MentorID,
		&req.Message,
		&req.Status,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Create создает заявку. Повтор пары студент/ментор отсекается уникальным индексом.
func (r *RequestRepository) Create(ctx context.Context, req *model.Request) error {
	query := `
		INSERT INTO requests (student_id, mentor_id, message, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.DB().QueryRow(
		ctx, query,
		req.StudentID,
		req.MentorID,
		req.Message,
		req.Status,
		req.CreatedAt,
	).Scan(&req.ID)

	if err != nil {
		if base.IsUniqueViolation(err) {
			return apperr.DuplicateRequest("request to mentor %d already exists", req.MentorID)
		}
		return fmt.Errorf("create request: %w", err)
	}

	return nil
}

// GetByID получает заявку по ID
func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*model.Request, error) {
	return r.getOne(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id)
}

// GetByIDForUpdate получает заявку и блокирует строку до конца транзакции
func (r *RequestRepository) GetByIDForUpdate(ctx context.Context, id int64) (*model.Request, error) {
	return r.getOne(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1 FOR UPDATE`, id)
}

// GetByPair получает заявку студента к ментору
func (r *RequestRepository) GetByPair(ctx context.Context, studentID, mentorID int64) (*model.Request, error) {
	return r.getOne(ctx, `SELECT `+requestColumns+` FROM requests WHERE student_id = $1 AND mentor_id = $2`, studentID, mentorID)
}

func (r *RequestRepository) getOne(ctx context.Context, query string, args ...any) (*model.Request, error) {
	req, err := scanRequest(r.DB().QueryRow(ctx, query, args...))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	return req, nil
}

// ListByUser получает заявки, где пользователь студент или ментор
func (r *RequestRepository) ListByUser(ctx context.Context, userID int64) ([]*model.Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM requests
		WHERE student_id = $1 OR mentor_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.DB().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}

	requests, err := base.CollectRows(rows, scanRequest)
	if err != nil {
		return nil, fmt.Errorf("scan requests: %w", err)
	}

	return requests, nil
}

// Update сохраняет заявку, если её статус всё ещё равен expected
func (r *RequestRepository) Update(ctx context.Context, req *model.Request, expected model.RequestStatus) error {
	query := `
		UPDATE requests
		SET status = $1, message = $2, updated_at = $3
		WHERE id = $4 AND status = $5
	`

	affected, err := r.ExecAffected(ctx, query, req.Status, req.Message, req.UpdatedAt, req.ID, expected)
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}

	if affected == 0 {
		return apperr.InvalidTransition("request %d is no longer %s", req.ID, expected)
	}

	return nil
}
