package realtime

import "context"

// Publisher публикует событие в канал пользователя. Доставка at-most-once.
type Publisher interface {
	Publish(ctx context.Context, userID int64, event string, payload any) error
}

// LocalBroker публикует сразу в хаб; подходит для одного экземпляра сервиса
type LocalBroker struct {
	hub *Hub
}

func NewLocalBroker(hub *Hub) *LocalBroker {
	return &LocalBroker{hub: hub}
}

func (b *LocalBroker) Publish(ctx context.Context, userID int64, event string, payload any) error {
	b.hub.Deliver(userID, Frame{Event: event, Data: payload})
	return nil
}
