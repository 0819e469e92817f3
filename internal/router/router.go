package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/travelhub/busticket/internal/handler"
	"github.com/travelhub/busticket/internal/middleware"
)

// Guards bundles the middleware the route groups share.  Nil entries are
// skipped.
type Guards struct {
	JWTSecret   string
	RateLimit   echo.MiddlewareFunc // reserve and payment start
	SearchCache echo.MiddlewareFunc // trip search only
}

func (g Guards) use(mw ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mw))
	for _, m := range mw {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// RegisterRoutes registers routes that need no authentication besides the
// public trip endpoints.  The health check is used by load balancers.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterPublic registers trip browsing and seat reservation.  Guests may
// reserve; a bearer token, when present, is verified and links the ticket
// to the caller.
func RegisterPublic(e *echo.Echo, h *handler.TripHandler, g Guards) {
	e.GET("/v1/trips/search", h.Search, g.use(g.SearchCache)...)
	e.GET("/v1/trips/:id", h.Get)
	e.GET("/v1/trips/:id/occupied-seats", h.OccupiedSeats)
	e.POST("/v1/trips/:id/tickets", h.Reserve, g.use(middleware.OptionalJWT(g.JWTSecret), g.RateLimit)...)
}

// RegisterTickets registers ticket lookup, cancellation, payment start and
// the gateway webhook.  Ticket ids act as the customer's handle.
func RegisterTickets(e *echo.Echo, t *handler.TicketHandler, p *handler.PaymentHandler, g Guards) {
	tickets := e.Group("/v1/tickets")
	tickets.GET("/:id", t.Get)
	tickets.GET("/:id/pdf", t.PDF)
	tickets.DELETE("/:id", t.Cancel)
	tickets.POST("/:id/payment", t.StartPayment, g.use(g.RateLimit)...)

	e.POST("/v1/payments/callback", p.Callback)
}

// RegisterAdmin registers operator endpoints.  All of them require a valid
// JWT with the OWNER or ADMIN role.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, g Guards) {
	guard := []echo.MiddlewareFunc{
		middleware.JWTAuth(g.JWTSecret),
		middleware.RequireRole(middleware.RoleOwner, middleware.RoleAdmin),
	}
	admin := e.Group("/v1/admin", guard...)
	admin.PUT("/trips/:id/legs", h.SetLegs)
	admin.POST("/buses/:id/seats", h.CreateLayout)
	admin.DELETE("/seats/:id", h.DeleteSeat)

	e.GET("/v1/buses/:id/seats", h.BusSeats, guard...)
}
