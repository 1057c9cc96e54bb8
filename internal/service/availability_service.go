package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/mentor_match/internal/apperr"
	"github.com/Freeeeeet/mentor_match/internal/availability"
	"github.com/Freeeeeet/mentor_match/internal/negotiation"
	"github.com/Freeeeeet/mentor_match/internal/store"
	"go.uber.org/zap"
)

const (
	// Во сколько раз запрошенный limit может превышать настроенный
	maxLimitFactor = 10
	// Минимальные длительность и шаг слота
	minSlotGranularity = 5 * time.Minute
)

type AvailabilityService struct {
	store  store.Store
	match  availability.MatchOptions
	logger *zap.Logger
}

func NewAvailabilityService(st store.Store, match availability.MatchOptions, logger *zap.Logger) *AvailabilityService {
	return &AvailabilityService{
		store:  st,
		match:  match,
		logger: logger,
	}
}

// DefaultMatch параметры подбора слотов из конфигурации
func (s *AvailabilityService) DefaultMatch() availability.MatchOptions {
	return s.match
}

// Get возвращает интервалы доступности пользователя, отсортированные по началу
func (s *AvailabilityService) Get(ctx context.Context, userID int64) ([]availability.Interval, error) {
	user, err := s.store.Repos().Users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, apperr.NotFound("user %d not found", userID)
	}

	intervals, err := s.store.Repos().Availability.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	return availability.Normalize(intervals), nil
}

// Replace заменяет доступность пользователя. Менять можно только свою.
func (s *AvailabilityService) Replace(ctx context.Context, actor negotiation.Actor, userID int64, intervals []availability.Interval) ([]availability.Interval, error) {
	if actor.UserID != userID {
		return nil, apperr.Forbidden("cannot change availability of user %d", userID)
	}
	for _, iv := range intervals {
		if err := iv.Validate(); err != nil {
			return nil, err
		}
	}
	normalized := availability.Normalize(intervals)

	err := s.store.InTx(ctx, func(ctx context.Context, repos store.Repositories) error {
		return repos.Availability.Replace(ctx, userID, normalized)
	})
	if err != nil {
		return nil, fmt.Errorf("replace availability: %w", err)
	}

	s.logger.Info("Availability updated",
		zap.Int64("user_id", userID),
		zap.Int("intervals", len(normalized)),
	)

	return normalized, nil
}

// CommonSlots подбирает общие слоты двух пользователей
func (s *AvailabilityService) CommonSlots(ctx context.Context, userA, userB int64, opts availability.MatchOptions) ([]availability.Interval, error) {
	opts, err := s.boundMatch(opts)
	if err != nil {
		return nil, err
	}

	a, err := s.Get(ctx, userA)
	if err != nil {
		return nil, err
	}
	b, err := s.Get(ctx, userB)
	if err != nil {
		return nil, err
	}

	slots := availability.CommonSlots(a, b, opts)

	s.logger.Debug("Common slots computed",
		zap.Int64("user_a", userA),
		zap.Int64("user_b", userB),
		zap.Int("slots", len(slots)),
	)

	return slots, nil
}

// boundMatch отклоняет слишком мелкие слоты и ограничивает limit сверху
func (s *AvailabilityService) boundMatch(opts availability.MatchOptions) (availability.MatchOptions, error) {
	if opts.Duration < minSlotGranularity || opts.Step < minSlotGranularity {
		return opts, apperr.Validation("duration and step must be at least %s", minSlotGranularity)
	}

	base := s.match.Limit
	if base <= 0 {
		base = availability.DefaultMatchOptions().Limit
	}
	if maxLimit := base * maxLimitFactor; opts.Limit > maxLimit {
		opts.Limit = maxLimit
	}
	return opts, nil
}
