package handlers

import (
	"net/http"

	"github.com/amongthesloths/trophybot/internal/auth"
	"github.com/amongthesloths/trophybot/internal/metrics"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

func RegisterRoutes(r chi.Router, authHandler *auth.AuthHandler, trophyHandler *TrophyHandler, lg zerolog.Logger) huma.API {
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(lg))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	// Initialize Huma API
	config := huma.DefaultConfig("Trophy Bot API", "1.0.0")
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"cookieAuth": {
			Type: "apiKey",
			In:   "cookie",
			Name: auth.TokenCookie,
		},
		"bearerAuth": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}
	api := humachi.New(r, config)

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	// Auth routes
	r.Get("/auth/discord/login", authHandler.HandleLogin)
	r.Get("/auth/discord/callback", authHandler.HandleCallback)

	RegisterOperations(api, authHandler, trophyHandler)
	return api
}

// RegisterOperations adds the JSON operations to api. It is separate from
// RegisterRoutes so tests can mount it on a humatest API.
func RegisterOperations(api huma.API, authHandler *auth.AuthHandler, trophyHandler *TrophyHandler) {
	secured := func(o *huma.Operation) {
		o.Security = []map[string][]string{{"cookieAuth": {}}, {"bearerAuth": {}}}
	}

	huma.Get(api, "/me", authHandler.HandleMe, secured)

	huma.Get(api, "/trophies", trophyHandler.HandleListTrophies)
	huma.Get(api, "/trophies/{id}", trophyHandler.HandleGetTrophy)
	huma.Get(api, "/users/{userId}/trophies", trophyHandler.HandleUserTrophies)
	huma.Get(api, "/leaderboard", trophyHandler.HandleLeaderboard)

	huma.Post(api, "/trophies", trophyHandler.HandleCreateTrophy, secured, func(o *huma.Operation) {
		o.DefaultStatus = http.StatusCreated
	})
	huma.Post(api, "/trophies/{id}/awards", trophyHandler.HandleAwardTrophy, secured, func(o *huma.Operation) {
		o.DefaultStatus = http.StatusCreated
	})
	huma.Delete(api, "/trophies/{id}/awards/{userId}", trophyHandler.HandleRemoveAward, secured, func(o *huma.Operation) {
		o.DefaultStatus = http.StatusNoContent
	})
}
