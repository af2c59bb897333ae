package router

import (
	"github.com/labstack/echo/v4"

	"novaland/internal/adapter/api/handler"
	"novaland/internal/adapter/api/middleware"
)

func Setup(e *echo.Echo, threadHandler *handler.ThreadHandler, offerHandler *handler.OfferHandler, wsHandler *handler.WebSocketHandler, walletMiddleware *middleware.WalletMiddleware) {
	SetupThreadRouter(e, threadHandler, offerHandler, walletMiddleware)
	SetupWebSocketRouter(e, wsHandler)
}
