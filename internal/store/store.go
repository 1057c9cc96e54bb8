// Package store объявляет контракты хранилища, общие для Postgres и in-memory реализаций.
package store

import (
	"context"

	"github.com/Freeeeeet/mentor_match/internal/availability"
	"github.com/Freeeeeet/mentor_match/internal/model"
)

// Методы Get* возвращают (nil, nil), если запись не найдена.
// Методы Update* выполняют compare-and-swap по статусу и возвращают
// apperr.ErrInvalidStateTransition, если статус уже изменился.

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	ListByRole(ctx context.Context, role model.Role) ([]*model.User, error)
	SetTelegramID(ctx context.Context, userID int64, telegramID int64) error
}

type AvailabilityRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]availability.Interval, error)
	// Replace заменяет весь набор интервалов пользователя
	Replace(ctx context.Context, userID int64, intervals []availability.Interval) error
}

type RequestRepository interface {
	// Create возвращает apperr.ErrDuplicateRequest, если пара студент/ментор уже есть
	Create(ctx context.Context, req *model.Request) error
	GetByID(ctx context.Context, id int64) (*model.Request, error)
	// GetByIDForUpdate блокирует строку до конца транзакции
	GetByIDForUpdate(ctx context.Context, id int64) (*model.Request, error)
	GetByPair(ctx context.Context, studentID, mentorID int64) (*model.Request, error)
	ListByUser(ctx context.Context, userID int64) ([]*model.Request, error)
	Update(ctx context.Context, req *model.Request, expected model.RequestStatus) error
}

type ProposalRepository interface {
	Create(ctx context.Context, p *model.Proposal) error
	GetByID(ctx context.Context, id int64) (*model.Proposal, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*model.Proposal, error)
	ListByUser(ctx context.Context, userID int64) ([]*model.Proposal, error)
	Update(ctx context.Context, p *model.Proposal, expected model.ProposalStatus) error
}

type MeetingRepository interface {
	Create(ctx context.Context, m *model.Meeting) error
	GetByID(ctx context.Context, id int64) (*model.Meeting, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*model.Meeting, error)
	ListByUser(ctx context.Context, userID int64) ([]*model.Meeting, error)
	UpdateStatus(ctx context.Context, m *model.Meeting, expected model.MeetingStatus) error
	// SetLinkIfEmpty сохраняет ссылку, только если у встречи её ещё нет.
	// Возвращает итоговую ссылку встречи.
	SetLinkIfEmpty(ctx context.Context, meetingID int64, link string) (string, error)
}

// Repositories набор репозиториев, привязанных к одному соединению или транзакции
type Repositories struct {
	Users        UserRepository
	Availability AvailabilityRepository
	Requests     RequestRepository
	Proposals    ProposalRepository
	Meetings     MeetingRepository
}

// Store хранилище с поддержкой транзакций
type Store interface {
	// Repos возвращает репозитории вне транзакции
	Repos() Repositories
	// InTx выполняет fn в одной транзакции. Ошибка fn откатывает все изменения.
	InTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
