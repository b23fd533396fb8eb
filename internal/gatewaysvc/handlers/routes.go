package handlers

import (
	"github.com/go-chi/chi"
)

func (h *Handler) SetRoutes(r chi.Router) {
	r.Get("/", h.HealthHandler)

	// cards
	r.Get("/card/{uuid}", h.GetCard)
	r.Get("/cards", h.GetCards)
	r.Get("/cards/{date_start}/{date_end}", h.GetCardsBetween)
	r.Post("/card", h.CreateCard)
	r.Put("/card", h.UpdateCard)
	r.Delete("/card", h.DeleteCard)

	// media
	r.Get("/media", h.GetMediaPages)
	r.Get("/media/type/{type}", h.GetMediaOfType)
	r.Get("/media/{date}", h.GetMediaByDate)
	r.Post("/media", h.CreateMedia)
	r.Put("/media", h.UpdateMedia)
	r.Delete("/media", h.DeleteMedia)

	// change feed
	r.Get("/events", h.HandleWebSocket)
}
