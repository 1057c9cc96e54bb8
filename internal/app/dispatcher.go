package app

import (
	"context"
	"sync"
	"time"

	"github.com/Freeeeeet/mentor_match/internal/fallback"
	"github.com/Freeeeeet/mentor_match/internal/model"
	"github.com/Freeeeeet/mentor_match/internal/negotiation"
	"github.com/Freeeeeet/mentor_match/internal/notify"
	"github.com/Freeeeeet/mentor_match/internal/realtime"
	"github.com/Freeeeeet/mentor_match/internal/store"
	"go.uber.org/zap"
)

// DispatcherOptions настройки доставки событий
type DispatcherOptions struct {
	QueueSize int
	Workers   int
	// Timeout ограничивает одну доставку
	Timeout time.Duration
}

// Dispatcher доставляет события переговоров в фоне: real-time канал и уведомления.
// Доставка best-effort: ошибки только логируются.
type Dispatcher struct {
	users     store.UserRepository
	composer  *notify.Composer
	notifier  notify.Notifier
	publisher realtime.Publisher
	opts      DispatcherOptions
	logger    *zap.Logger

	queue    chan negotiation.Event
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewDispatcher создаёт диспетчер. notifier и publisher могут быть nil.
func NewDispatcher(
	users store.UserRepository,
	composer *notify.Composer,
	notifier notify.Notifier,
	publisher realtime.Publisher,
	opts DispatcherOptions,
	logger *zap.Logger,
) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Dispatcher{
		users:     users,
		composer:  composer,
		notifier:  notifier,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
		queue:     make(chan negotiation.Event, opts.QueueSize),
		stopChan:  make(chan struct{}),
	}
}

// Publish ставит события в очередь и никогда не блокирует.
// При переполненной очереди событие отбрасывается.
func (d *Dispatcher) Publish(events ...negotiation.Event) {
	for _, ev := range events {
		select {
		case d.queue <- ev:
		default:
			d.logger.Warn("Dispatch queue is full, event dropped", zap.String("event", ev.EventName()))
		}
	}
}

// Start запускает воркеров
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Starting event dispatcher", zap.Int("workers", d.opts.Workers))

	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go d.run(ctx)
	}
}

// Stop останавливает воркеров, доставив уже принятые события
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.logger.Info("Stopping event dispatcher")
		close(d.stopChan)
	})
	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case ev := <-d.queue:
			d.Handle(ctx, ev)
		case <-d.stopChan:
			d.drain(ctx)
			return
		case <-ctx.Done():
			d.logger.Info("Event dispatcher cancelled")
			return
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case ev := <-d.queue:
			d.Handle(ctx, ev)
		default:
			return
		}
	}
}

// Handle доставляет одно событие всем его участникам
func (d *Dispatcher) Handle(ctx context.Context, ev negotiation.Event) {
	logger := d.logger.With(zap.String("event", ev.EventName()))

	users, err := d.loadUsers(ctx, ev.Participants())
	if err != nil {
		logger.Error("Failed to load event participants", zap.Error(err))
		return
	}

	for _, delivery := range d.composer.Compose(ev, users) {
		if d.publisher != nil {
			_ = fallback.Run(ctx, logger, "realtime.publish", d.opts.Timeout, func(ctx context.Context) error {
				return d.publisher.Publish(ctx, delivery.UserID, delivery.Topic, delivery.Payload)
			})
		}

		user, ok := users[delivery.UserID]
		if d.notifier == nil || delivery.Message == nil || !ok {
			continue
		}
		if err := d.notifier.Send(ctx, notify.RecipientOf(user), *delivery.Message); err != nil {
			logger.Warn("Notification not delivered",
				zap.Int64("user_id", delivery.UserID),
				zap.String("topic", delivery.Topic),
				zap.Error(err),
			)
		}
	}
}

func (d *Dispatcher) loadUsers(ctx context.Context, ids []int64) (map[int64]*model.User, error) {
	list, err := d.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	users := make(map[int64]*model.User, len(list))
	for _, u := range list {
		users[u.ID] = u
	}
	return users, nil
}
