package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/flight-seat-reservation/internal/handler"
	"github.com/iliyamo/flight-seat-reservation/internal/middleware"
	"github.com/iliyamo/flight-seat-reservation/internal/utils"
)

// Handlers bundles everything the routes dispatch to.
type Handlers struct {
	Health    echo.HandlerFunc
	Auth      *handler.AuthHandler
	Public    *handler.PublicHandler
	Passenger *handler.PassengerHandler
	Airline   *handler.AirlineHandler
	Admin     *handler.AdminHandler
}

// Options carries the route-level middleware settings.
type Options struct {
	JWTSecret   string
	AdminAPIKey string
	// Cache wraps the public catalog lists and details.  Flight search and
	// flight detail are never cached so remaining seats stay current.
	Cache echo.MiddlewareFunc
}

// RegisterRoutes registers every route of the API on e.
func RegisterRoutes(e *echo.Echo, h Handlers, opt Options) {
	e.GET("/healthz", h.Health)

	registerPublic(e, h.Public, opt.Cache)
	registerAuth(e, h.Auth)
	registerPassenger(e, h.Passenger, opt.JWTSecret)
	registerAirline(e, h.Airline, opt.JWTSecret)
	registerAdmin(e, h.Admin, opt.AdminAPIKey)
}

func registerPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	if cache == nil {
		cache = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	g := e.Group("/v1")
	g.GET("/airlines", p.ListAirlines, cache)
	g.GET("/airlines/:id", p.GetAirline, cache)
	g.GET("/airports", p.ListAirports, cache)
	g.GET("/airports/:id", p.GetAirport, cache)
	g.GET("/extras", p.ListExtras, cache)
	g.GET("/extras/:id", p.GetExtra, cache)

	g.GET("/flights/search", p.SearchFlights)
	g.GET("/flights/:id", p.GetFlight)
}

func registerAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/v1/auth")
	g.POST("/airlines/register", a.RegisterAirline)
	g.POST("/passengers/register", a.RegisterPassenger)
	g.POST("/login", a.Login)
}

func registerPassenger(e *echo.Echo, h *handler.PassengerHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(utils.RolePassenger),
	)
	g.POST("/flights/:id/tickets", h.Purchase)
	g.GET("/my-tickets", h.MyTickets)
	g.GET("/tickets/:id", h.GetTicket)
	g.DELETE("/me", h.DeleteMe)
}

func registerAirline(e *echo.Echo, h *handler.AirlineHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(utils.RoleAirline),
	)
	g.POST("/aircraft", h.CreateAircraft)
	g.GET("/aircraft", h.ListAircraft)
	g.DELETE("/aircraft/:id", h.DeleteAircraft)
	g.POST("/flights", h.CreateFlight)
	g.GET("/airline/flights", h.ListFlights)
	g.DELETE("/flights/:id", h.DeleteFlight)
	g.GET("/flights/:id/tickets", h.Manifest)
	g.GET("/airline/stats", h.Stats)
	g.DELETE("/airline", h.DeleteMe)
}

func registerAdmin(e *echo.Echo, h *handler.AdminHandler, key string) {
	g := e.Group("/v1/admin", middleware.AdminKey(key))
	g.POST("/airports", h.CreateAirport)
	g.DELETE("/airports/:id", h.DeleteAirport)
	g.POST("/extras", h.CreateExtra)
	g.DELETE("/extras/:id", h.DeleteExtra)
	g.DELETE("/airlines/:id", h.DeleteAirline)
	g.DELETE("/passengers/:id", h.DeletePassenger)
	g.DELETE("/tickets/:id", h.DeleteTicket)
}
