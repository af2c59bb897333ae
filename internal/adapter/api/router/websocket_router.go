package router

import (
	"github.com/labstack/echo/v4"

	"novaland/internal/adapter/api/handler"
)

// SetupWebSocketRouter sets up the change feed endpoint. Auth happens inside
// the handler because the credential arrives in query parameters.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler) {
	e.GET("/v1/ws", wsHandler.HandleWebSocket)
}
