// Package realtime рассылает события подключённым клиентам.
// Каждому пользователю соответствует канал user_<id>.
package realtime

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const channelPrefix = "user_"

// Channel имя канала пользователя
func Channel(userID int64) string {
	return fmt.Sprintf("%s%d", channelPrefix, userID)
}

// ParseChannel извлекает ID пользователя из имени канала
func ParseChannel(channel string) (int64, bool) {
	if !strings.HasPrefix(channel, channelPrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(channel, channelPrefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Frame сообщение, уходящее клиенту
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Conn часть websocket соединения, в которую пишет хаб
type Conn interface {
	WriteJSON(v any) error
}

type subscriber struct {
	mu   sync.Mutex // websocket не допускает параллельной записи
	conn Conn
}

// Hub реестр соединений этого процесса
type Hub struct {
	mu     sync.RWMutex
	subs   map[int64]map[*subscriber]struct{}
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[int64]map[*subscriber]struct{}),
		logger: logger,
	}
}

// Register подписывает соединение на канал пользователя и возвращает функцию отписки
func (h *Hub) Register(userID int64, conn Conn) func() {
	sub := &subscriber{conn: conn}

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*subscriber]struct{})
	}
	h.subs[userID][sub] = struct{}{}
	h.mu.Unlock()

	h.logger.Debug("Realtime client connected", zap.Int64("user_id", userID))

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[userID], sub)
		if len(h.subs[userID]) == 0 {
			delete(h.subs, userID)
		}
	}
}

// Connected количество соединений пользователя
func (h *Hub) Connected(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

// Deliver пишет кадр во все соединения пользователя и возвращает число успешных записей
func (h *Hub) Deliver(userID int64, frame Frame) int {
	h.mu.RLock()
	targets := make([]*subscriber, 0, len(h.subs[userID]))
	for sub := range h.subs[userID] {
		targets = append(targets, sub)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, sub := range targets {
		sub.mu.Lock()
		err := sub.conn.WriteJSON(frame)
		sub.mu.Unlock()
		if err != nil {
			h.logger.Warn("Failed to write realtime frame",
				zap.Int64("user_id", userID),
				zap.String("event", frame.Event),
				zap.Error(err),
			)
			continue
		}
		delivered++
	}
	return delivered
}
