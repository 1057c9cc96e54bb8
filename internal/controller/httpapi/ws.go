package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

const localWSUser = "ws_user_id"

// upgradeWebSocket проверяет токен из ?token= до апгрейда соединения
func (s *Server) upgradeWebSocket(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	userID, err := s.tokens.VerifyAccessToken(c.Query("token"))
	if err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	}
	c.Locals(localWSUser, userID)
	return c.Next()
}

// serveWebSocket держит соединение открытым, пока клиент не отключится.
// Сервер только пишет; входящие сообщения игнорируются.
func (s *Server) serveWebSocket(conn *websocket.Conn) {
	userID, _ := conn.Locals(localWSUser).(int64)
	unregister := s.hub.Register(userID, conn)
	defer func() {
		unregister()
		_ = conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.logger.Debug("Websocket closed", zap.Int64("user_id", userID), zap.Error(err))
			return
		}
	}
}
