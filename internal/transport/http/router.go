package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bianchibruno/comp0034-fyp/internal/handlers"
	"github.com/bianchibruno/comp0034-fyp/internal/middleware/auth"
)

type Deps struct {
	AuthHandler    *handlers.AuthHandler
	RequestHandler *handlers.RequestHandler
	Guard          *auth.Guard
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e.POST("/register", d.AuthHandler.Register)
	e.POST("/login", d.AuthHandler.Login)
	e.GET("/secure-data", d.AuthHandler.SecureData, d.Guard.RequireAuth)
	e.DELETE("/delete-user/:email", d.AuthHandler.DeleteUser,
		d.Guard.RequireAuth, d.Guard.RequireRole("administrator"))

	requests := e.Group("/requests")
	requests.GET("", d.RequestHandler.GetRequests)
	if d.RequestHandler.Search != nil {
		requests.GET("/search", d.RequestHandler.SearchRequests)
	}
	requests.GET("/:id", d.RequestHandler.GetRequest)
	requests.POST("", d.RequestHandler.CreateRequest, d.Guard.RequireAuth)
	requests.PATCH("/:id", d.RequestHandler.PatchRequest, d.Guard.RequireAuth)
	requests.DELETE("/:id", d.RequestHandler.DeleteRequest, d.Guard.RequireAuth)
}
