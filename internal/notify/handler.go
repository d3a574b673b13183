package notify

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/FCHEHIDI/Library-Management-System/internal/web"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the notification endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/broadcast", h.handleBroadcast)

	r.Route("/user/{userID}", func(r chi.Router) {
		r.Get("/", h.handleHistory)
		r.Get("/unread", h.handleUnread)
		r.Post("/mark-read", h.handleMarkManyRead)
		r.Delete("/read", h.handleClearRead)
	})

	r.Post("/{notificationID}/read", h.handleMarkRead)
	return r
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		http.Error(w, "invalid "+param, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title    string   `json:"title"`
		Message  string   `json:"message"`
		Priority Priority `json:"priority"`
	}
	if err := web.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Title == "" || req.Message == "" {
		http.Error(w, "title and message are required", http.StatusBadRequest)
		return
	}

	count, err := h.service.Broadcast(r.Context(), req.Title, req.Message, req.Priority)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, map[string]int{"sent": count})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	list, err := h.service.History(r.Context(), id, limit)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, list)
}

func (h *Handler) handleUnread(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	list, err := h.service.Unread(r.Context(), id, limit)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, list)
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "notificationID")
	if !ok {
		return
	}
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}

	n, err := h.service.MarkRead(r.Context(), id, userID)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, n)
}

func (h *Handler) handleMarkManyRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	var req struct {
		IDs []uuid.UUID `json:"ids"`
	}
	if err := web.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	count, err := h.service.MarkManyRead(r.Context(), id, req.IDs)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, map[string]int{"marked": count})
}

func (h *Handler) handleClearRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	count, err := h.service.ClearRead(r.Context(), id)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, map[string]int{"cleared": count})
}
