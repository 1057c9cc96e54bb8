package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/mentor_match/internal/availability"
	"github.com/Freeeeeet/mentor_match/internal/repository/base"
	"github.com/jackc/pgx/v5"
)

type AvailabilityRepository struct {
	base.Repository
}

func NewAvailabilityRepository(db base.DBTX) *AvailabilityRepository {
	return &AvailabilityRepository{Repository: base.NewRepository(db)}
}

// ListByUser получает интервалы доступности пользователя по возрастанию начала
func (r *AvailabilityRepository) ListByUser(ctx context.Context, userID int64) ([]availability.Interval, error) {
	query := `
		SELECT start_at, end_at
		FROM availability_intervals
		WHERE user_id = $1
		ORDER BY start_at
	`

	rows, err := r.DB().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	defer rows.Close()

	intervals := []availability.Interval{}
	for rows.Next() {
		var iv availability.Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, fmt.Errorf("scan availability: %w", err)
		}
		intervals = append(intervals, availability.New(iv.Start, iv.End))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate availability: %w", err)
	}

	return intervals, nil
}

// Replace удаляет старые интервалы и вставляет новые одним батчем.
// Вызывать внутри транзакции, иначе замена не атомарна.
func (r *AvailabilityRepository) Replace(ctx context.Context, userID int64, intervals []availability.Interval) error {
	if _, err := r.DB().Exec(ctx, `DELETE FROM availability_intervals WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear availability: %w", err)
	}

	normalized := availability.Normalize(intervals)
	if len(normalized) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, iv := range normalized {
		batch.Queue(`INSERT INTO availability_intervals (user_id, start_at, end_at) VALUES ($1, $2, $3)`, userID, iv.Start, iv.End)
	}

	results := r.DB().SendBatch(ctx, batch)
	defer results.Close()

	for range normalized {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert availability: %w", err)
		}
	}

	return nil
}
