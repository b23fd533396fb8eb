package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi"

	"github.com/avvvet/timeline-services/internal/gatewaysvc/models"
)

const (
	defaultFilterKey   = "ts"
	defaultFilterValue = "2020"
)

// GetMediaPages scans the media table. filter_key and filter_value select
// records whose attribute sorts before the value; an empty filter_value
// returns everything.
func (h *Handler) GetMediaPages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filterKey := defaultFilterKey
	if q.Has("filter_key") {
		filterKey = q.Get("filter_key")
	}
	filterValue := defaultFilterValue
	if q.Has("filter_value") {
		filterValue = q.Get("filter_value")
	}

	media, err := h.media.ScanMedia(r.Context(), filterKey, filterValue)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.writeJSON(w, media)
}

func (h *Handler) GetMediaOfType(w http.ResponseWriter, r *http.Request) {
	media, err := h.media.GetMediaOfType(r.Context(), chi.URLParam(r, "type"))
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.writeJSON(w, media)
}

// GetMediaByDate serves /media/{date}. A segment of the form start-end is a
// range over ts, anything else is an exact ts. A ts that itself contains a
// dash, such as 2020-07-17T00:00:00, cannot be fetched exactly through this
// route; it is read as a range, and with more than one dash it is rejected
// with 400.
func (h *Handler) GetMediaByDate(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")

	var (
		media []models.Record
		err   error
	)
	if start, end, ok := strings.Cut(date, "-"); ok {
		if start == "" || end == "" || strings.Contains(end, "-") {
			h.HandleError(w, r, errors.Join(errBadRequest, errors.New("date range must be start-end")))
			return
		}
		media, err = h.media.GetMediaBetween(r.Context(), start, end)
	} else {
		media, err = h.media.GetMediaByDate(r.Context(), date)
	}
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.writeJSON(w, media)
}

func (h *Handler) CreateMedia(w http.ResponseWriter, r *http.Request) {
	var media models.Media
	if err := decodeBody(w, r, &media); err != nil {
		h.HandleError(w, r, err)
		return
	}

	created, err := h.media.CreateMedia(r.Context(), media)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	h.CreateResponse(w, Response{
		Message: "media created",
		Code:    http.StatusCreated,
		Data:    created,
	})
}

func (h *Handler) UpdateMedia(w http.ResponseWriter, r *http.Request) {
	var media models.Media
	if err := decodeBody(w, r, &media); err != nil {
		h.HandleError(w, r, err)
		return
	}

	updated, err := h.media.UpdateMedia(r.Context(), media)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	h.CreateResponse(w, Response{
		Message: "media updated",
		Code:    http.StatusOK,
		Data:    updated,
	})
}

func (h *Handler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	var key models.MediaKey
	if err := decodeBody(w, r, &key); err != nil {
		h.HandleError(w, r, err)
		return
	}

	old, err := h.media.DeleteMedia(r.Context(), key)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	msg := "media deleted"
	if old == nil {
		msg = "media not found"
	}
	h.CreateResponse(w, Response{
		Message: msg,
		Code:    http.StatusOK,
		Data:    old,
	})
}
