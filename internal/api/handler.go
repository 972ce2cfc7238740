package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"dirbridge/internal/bridge"
	"dirbridge/internal/domain"
	"dirbridge/internal/middleware"
	"dirbridge/internal/service"
)

// Handler carries the services every endpoint dispatches to.
type Handler struct {
	log    *slog.Logger
	users  *service.UserService
	groups *service.GroupService
	auth   *service.AuthService
	bridge *bridge.Controller
}

func NewHandler(log *slog.Logger, users *service.UserService, groups *service.GroupService, auth *service.AuthService, ctrl *bridge.Controller) *Handler {
	return &Handler{log: log, users: users, groups: groups, auth: auth, bridge: ctrl}
}

// RouterConfig carries the middleware knobs the router needs.
type RouterConfig struct {
	RateLimitRPS       float64
	RateLimitBurst     int
	CORSAllowedOrigins []string
}

// Router assembles the /api/v1 route tree. Login and user creation are
// public so the console can bootstrap; everything else requires a Bearer
// token.
func (h *Handler) Router(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", h.login)
		r.Post("/users", h.createUser)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(h.auth))

			r.Post("/auth/logout", h.logout)

			r.Get("/users", h.listUsers)
			r.Get("/users/{id}", h.getUser)
			r.Put("/users/{id}", h.updateUser)
			r.Delete("/users/{id}", h.deleteUser)
			r.Put("/users/{id}/password", h.changePassword)
			r.Put("/users/{id}/status", h.setUserStatus)
			r.Get("/users/{id}/groups", h.listUserGroups)

			r.Get("/groups", h.listGroups)
			r.Post("/groups", h.createGroup)
			r.Get("/groups/{id}", h.getGroup)
			r.Put("/groups/{id}", h.updateGroup)
			r.Delete("/groups/{id}", h.deleteGroup)
			r.Get("/groups/{id}/descendants", h.listGroupDescendants)
			r.Get("/groups/{id}/members", h.listGroupMembers)
			r.Post("/groups/{id}/members", h.addGroupMembers)
			r.Delete("/groups/{id}/members/{userId}", h.removeGroupMember)

			r.Get("/ldap/config", h.getLDAPConfig)
			r.Put("/ldap/config", h.updateLDAPConfig)
			r.Get("/ldap/status", h.getLDAPStatus)
		})
	})

	return r
}

// pageFromQuery reads page, page_size, and search query parameters.
func pageFromQuery(r *http.Request) domain.PageRequest {
	q := r.URL.Query()
	page := domain.PageRequest{Search: q.Get("search")}
	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		page.Page = v
	}
	if v, err := strconv.Atoi(q.Get("page_size")); err == nil {
		page.PageSize = v
	}
	return page
}
