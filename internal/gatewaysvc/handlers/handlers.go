package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/timeline-services/internal/gatewaysvc/service"
	"github.com/avvvet/timeline-services/internal/gatewaysvc/sizeguard"
	"github.com/avvvet/timeline-services/internal/gatewaysvc/store"
	"github.com/avvvet/timeline-services/internal/gatewaysvc/ws"
)

// maxBodyBytes bounds request bodies well above the item size ceiling so
// that oversized records still reach the size guard.
const maxBodyBytes = 4 << 20

var errBadRequest = errors.New("bad request")

type Handler struct {
	cards    *service.CardService
	media    *service.MediaService
	ws       *ws.Ws
	upgrader websocket.Upgrader
}

func NewHandler(cards *service.CardService, media *service.MediaService, hub *ws.Ws) *Handler {
	return &Handler{
		cards: cards,
		media: media,
		ws:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

// writeJSON writes a read result without the response envelope.
func (h *Handler) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, map[string]interface{}{
		"statusCode": http.StatusOK,
		"body":       map[string]string{"message": "OK"},
	})
}

// HandleError maps a service or store failure to its status code and
// writes it in the response envelope.
func (h *Handler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)

	entry := log.WithFields(log.Fields{
		"request_id": middleware.GetReqID(r.Context()),
		"method":     r.Method,
		"path":       r.URL.Path,
		"status":     code,
	})
	var se *store.StoreError
	if errors.As(err, &se) && se.Code != "" {
		entry = entry.WithField("store_code", se.Code)
	}
	if code >= http.StatusInternalServerError {
		entry.Errorf("request failed: %s", err)
	} else {
		entry.Warnf("request rejected: %s", err)
	}

	h.CreateResponse(w, Response{
		Message: http.StatusText(code),
		Code:    code,
		Error:   err.Error(),
	})
}

func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, service.ErrInvalidRecord):
		return http.StatusBadRequest
	case errors.Is(err, sizeguard.ErrItemTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, store.ErrPaginationLimit):
		return http.StatusInternalServerError
	case errors.Is(err, store.ErrUnavailable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// decodeBody reads one JSON document from the request body.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return err
		}
		return errors.Join(errBadRequest, err)
	}
	return nil
}
