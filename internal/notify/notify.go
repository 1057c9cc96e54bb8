// Package notify доставляет уведомления участникам переговоров (email, Telegram).
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/Freeeeeet/mentor_match/internal/fallback"
	"github.com/Freeeeeet/mentor_match/internal/model"
	"go.uber.org/zap"
)

// Recipient адресат уведомления
type Recipient struct {
	UserID     int64
	Name       string
	Email      string
	TelegramID int64
}

// RecipientOf строит адресата из пользователя
func RecipientOf(u *model.User) Recipient {
	r := Recipient{
		UserID: u.ID,
		Name:   u.DisplayName(),
		Email:  u.Email,
	}
	if u.HasTelegram() {
		r.TelegramID = *u.TelegramID
	}
	return r
}

// Action кнопка под сообщением. Data уходит в callback бота, URL открывает ссылку.
type Action struct {
	Text string
	Data string
	URL  string
}

// Message уведомление, независимое от канала доставки
type Message struct {
	Subject string
	Body    string
	Actions []Action
}

// Notifier канал доставки
type Notifier interface {
	Name() string
	Send(ctx context.Context, to Recipient, msg Message) error
}

// Multi рассылает сообщение во все каналы. Сбой одного канала не мешает остальным.
type Multi struct {
	notifiers []Notifier
	timeout   time.Duration
	logger    *zap.Logger
}

func NewMulti(timeout time.Duration, logger *zap.Logger, notifiers ...Notifier) *Multi {
	return &Multi{
		notifiers: notifiers,
		timeout:   timeout,
		logger:    logger,
	}
}

func (m *Multi) Name() string {
	return "multi"
}

// Send возвращает объединённые ошибки каналов; они уже залогированы
func (m *Multi) Send(ctx context.Context, to Recipient, msg Message) error {
	var errs []error
	for _, n := range m.notifiers {
		err := fallback.Run(ctx, m.logger.With(zap.Int64("user_id", to.UserID)), "notify."+n.Name(), m.timeout,
			func(ctx context.Context) error {
				return n.Send(ctx, to, msg)
			})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
