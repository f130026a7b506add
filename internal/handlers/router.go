package handlers

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"net/http"
	"time"
)

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.LoggingMiddleware)
	r.Use(h.RecoverMiddleware)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Post("/send", h.HandleSend)
		r.Get("/state", h.HandleGetState)
		r.Get("/toasts", h.HandleGetToasts)
		r.Get("/config", h.HandleGetConfig)
	})

	return r
}
