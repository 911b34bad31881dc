package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mnemohq/mnemo/internal/api"
)

// setupRouter wires the protocol handlers behind the session
// middleware. Only login is public.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	syncHandler := api.NewSyncHandler(
		app.stores,
		app.scheduler,
		app.tokens,
		app.verifier,
		app.config.Auth,
		app.config.Sync.DeckName,
		app.logger,
	)

	r.Route("/sync", func(r chi.Router) {
		r.Post("/login", syncHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(api.RequireSession(app.tokens))
			r.Post("/getDecks", syncHandler.GetDecks)
			r.Post("/createDeck", syncHandler.CreateDeck)
			r.Post("/summary", syncHandler.Summary)
			r.Post("/applyPayload", syncHandler.ApplyPayload)
			r.Post("/fullup", syncHandler.FullUp)
			r.Post("/fulldown", syncHandler.FullDown)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
