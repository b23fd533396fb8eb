package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/avvvet/timeline-services/internal/gatewaysvc/models"
)

// cardPayload detects a missing uuid, which would otherwise decode as zero.
type cardPayload struct {
	models.Card
	UUID *int64 `json:"uuid"`
}

func (p cardPayload) card() (models.Card, error) {
	if p.UUID == nil {
		return models.Card{}, errors.Join(errBadRequest, errors.New("uuid is required"))
	}
	c := p.Card
	c.UUID = *p.UUID
	return c, nil
}

type cardKeyPayload struct {
	UUID *int64 `json:"uuid"`
	TS   string `json:"ts"`
}

func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	uuid, err := strconv.ParseInt(chi.URLParam(r, "uuid"), 10, 64)
	if err != nil {
		h.HandleError(w, r, errors.Join(errBadRequest, fmt.Errorf("uuid must be an integer: %w", err)))
		return
	}

	cards, err := h.cards.GetCards(r.Context(), uuid)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.writeJSON(w, cards)
}

func (h *Handler) GetCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.cards.ListCards(r.Context())
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.writeJSON(w, cards)
}

func (h *Handler) GetCardsBetween(w http.ResponseWriter, r *http.Request) {
	cards, err := h.cards.GetCardsBetween(r.Context(), chi.URLParam(r, "date_start"), chi.URLParam(r, "date_end"))
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.writeJSON(w, cards)
}

func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var p cardPayload
	if err := decodeBody(w, r, &p); err != nil {
		h.HandleError(w, r, err)
		return
	}
	card, err := p.card()
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	created, err := h.cards.CreateCard(r.Context(), card)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	h.CreateResponse(w, Response{
		Message: "card created",
		Code:    http.StatusCreated,
		Data:    created,
	})
}

func (h *Handler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	var p cardPayload
	if err := decodeBody(w, r, &p); err != nil {
		h.HandleError(w, r, err)
		return
	}
	card, err := p.card()
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	updated, err := h.cards.UpdateCard(r.Context(), card)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	h.CreateResponse(w, Response{
		Message: "card updated",
		Code:    http.StatusOK,
		Data:    updated,
	})
}

// DeleteCard answers 200 whether or not the key existed; data carries the
// removed card or null.
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	var p cardKeyPayload
	if err := decodeBody(w, r, &p); err != nil {
		h.HandleError(w, r, err)
		return
	}
	if p.UUID == nil {
		h.HandleError(w, r, errors.Join(errBadRequest, errors.New("uuid is required")))
		return
	}

	old, err := h.cards.DeleteCard(r.Context(), models.CardKey{UUID: *p.UUID, TS: p.TS})
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	msg := "card deleted"
	if old == nil {
		msg = "card not found"
	}
	h.CreateResponse(w, Response{
		Message: msg,
		Code:    http.StatusOK,
		Data:    old,
	})
}
