package router

import (
	"github.com/labstack/echo/v4"

	"novaland/internal/adapter/api/handler"
	"novaland/internal/adapter/api/middleware"
)

// SetupThreadRouter sets up all negotiation routes (excluding WebSocket)
func SetupThreadRouter(e *echo.Echo, threadHandler *handler.ThreadHandler, offerHandler *handler.OfferHandler, walletMiddleware *middleware.WalletMiddleware) {
	threadGroup := e.Group("/v1/threads")
	threadGroup.Use(walletMiddleware.Authenticate)

	// Thread management
	threadGroup.POST("", threadHandler.CreateThread)
	threadGroup.GET("", threadHandler.ListThreads)
	threadGroup.GET("/:id", threadHandler.GetThread)
	threadGroup.PUT("/:id/read", threadHandler.MarkThreadRead)

	// Messages
	threadGroup.POST("/:id/messages", threadHandler.SendNote)
	threadGroup.GET("/:id/messages", threadHandler.ListMessages)

	// Offer lifecycle
	threadGroup.POST("/:id/offers", offerHandler.SubmitOffer)
	threadGroup.POST("/:id/offers/:messageId/accept", offerHandler.AcceptOffer)
	threadGroup.POST("/:id/offers/:messageId/reject", offerHandler.RejectOffer)
}
