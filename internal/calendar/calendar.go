// Package calendar создаёт события видеовстреч во внешнем календаре.
package calendar

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Freeeeeet/mentor_match/internal/apperr"
	"github.com/Freeeeeet/mentor_match/internal/fallback"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultLinkPrefix = "https://meet.example.com"

// EventInput данные события встречи
type EventInput struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Attendees   []string
	Organizer   string // email организатора, если провайдер умеет действовать от его имени
}

// Provider создаёт событие и возвращает ссылку на видеозвонок
type Provider interface {
	CreateMeetingEvent(ctx context.Context, in EventInput) (string, error)
}

var errNotConfigured = errors.New("calendar integration is not configured")

// PlaceholderLink генерирует уникальную ссылку-заглушку под префиксом
func PlaceholderLink(prefix string) string {
	if prefix == "" {
		prefix = DefaultLinkPrefix
	}
	return strings.TrimRight(prefix, "/") + "/" + uuid.NewString()
}

// Resolver оборачивает провайдера таймаутом и запасной ссылкой
type Resolver struct {
	provider Provider
	prefix   string
	timeout  time.Duration
	logger   *zap.Logger
}

// NewResolver создаёт резолвер. provider может быть nil, тогда всегда выдаётся заглушка.
func NewResolver(provider Provider, prefix string, timeout time.Duration, logger *zap.Logger) *Resolver {
	if prefix == "" {
		prefix = DefaultLinkPrefix
	}
	return &Resolver{
		provider: provider,
		prefix:   prefix,
		timeout:  timeout,
		logger:   logger,
	}
}

// Link всегда возвращает ссылку: от провайдера или заглушку при любой ошибке
func (r *Resolver) Link(ctx context.Context, in EventInput) string {
	placeholder := PlaceholderLink(r.prefix)
	if r.provider == nil {
		r.logger.Debug("Calendar provider not configured, using placeholder link")
		return placeholder
	}

	return fallback.Value(ctx, r.logger, "calendar.create_event", r.timeout, placeholder,
		func(ctx context.Context) (string, error) {
			link, err := r.provider.CreateMeetingEvent(ctx, in)
			if err == nil && link == "" {
				err = errors.New("provider returned empty link")
			}
			return link, err
		})
}

// Create вызывает провайдера явно и возвращает ошибку ExternalCollaboratorFailure при сбое
func (r *Resolver) Create(ctx context.Context, in EventInput) (string, error) {
	if r.provider == nil {
		return "", apperr.External("calendar", errNotConfigured)
	}

	var link string
	err := fallback.Run(ctx, r.logger, "calendar", r.timeout, func(ctx context.Context) error {
		var err error
		link, err = r.provider.CreateMeetingEvent(ctx, in)
		if err == nil && link == "" {
			err = errors.New("provider returned empty link")
		}
		return err
	})
	if err != nil {
		return "", err
	}
	return link, nil
}
