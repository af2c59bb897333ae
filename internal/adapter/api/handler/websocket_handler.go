package handler

import (
	"net/http"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"novaland/internal/adapter/api/middleware"
	ws "novaland/internal/infrastructure/websocket"
	"novaland/pkg/errors"
	"novaland/pkg/logger"
)

type WebSocketHandler struct {
	feed *ws.Feed
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // You should restrict this in production
	},
}

func NewWebSocketHandler(feed *ws.Feed) *WebSocketHandler {
	return &WebSocketHandler{
		feed: feed,
	}
}

// HandleWebSocket upgrades the connection and streams thread events to the
// wallet. Browsers cannot set headers on WebSocket handshakes, so the wallet
// credential rides in query parameters instead of Authorization.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	wallet, err := middleware.VerifyWalletSignature(c.QueryParam("wallet"), c.QueryParam("sig"))
	if err != nil {
		return errors.Unauthorized("Authentication required", nil)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return errors.Internal("Failed to upgrade connection", err)
	}

	client := &ws.Client{
		Wallet: wallet,
		Conn:   conn,
		Sub:    h.feed.Subscribe(wallet),
	}

	logger.Info("WebSocket connected: %s", wallet)
	go client.ReadPump()
	go client.WritePump()

	return nil
}
