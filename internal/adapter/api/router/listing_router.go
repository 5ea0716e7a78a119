package router

import (
	"github.com/labstack/echo/v4"

	"unimarket/internal/adapter/api/handler"
	"unimarket/internal/adapter/api/middleware"
)

func SetupListingRouter(e *echo.Echo, listingHandler *handler.ListingHandler, authMiddleware *middleware.AuthMiddleware) {
	listings := e.Group("/v1/listings")

	listings.GET("/:id", listingHandler.GetByID)

	protected := listings.Group("")
	protected.Use(authMiddleware.Authenticate)
	protected.POST("", listingHandler.Create)
	protected.GET("/mine", listingHandler.ListMine)
}
