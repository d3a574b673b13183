package borrowing

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

// Routes mounts the borrowing endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.handleBorrow)
	r.Get("/overdue", h.handleOverdue)
	r.Post("/detect-overdue", h.handleDetectOverdue)
	r.Get("/user/{userID}", h.handleListByUser)
	r.Get("/user/{userID}/open", h.handleOpenByUser)
	r.Get("/book/{bookID}", h.handleListByBook)

	r.Route("/{borrowingID}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Post("/extend", h.handleExtend)
		r.Post("/return", h.handleReturn)
		r.Post("/force-return", h.handleForceReturn)
		r.Post("/waive-fees", h.handleWaiveFees)
	})
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

func (h *Handler) handleBorrow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID uuid.UUID `json:"user_id"`
		BookID uuid.UUID `json:"book_id"`
	}
	if err := web.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	record, err := h.service.Borrow(r.Context(), req.UserID, req.BookID)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusCreated, record)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "borrowingID")
	if !ok {
		return
	}
	record, err := h.service.Get(r.Context(), id)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, record)
}

func (h *Handler) handleExtend(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "borrowingID")
	if !ok {
		return
	}
	var req struct {
		Days int `json:"days"`
	}
	if err := web.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	record, err := h.service.Extend(r.Context(), id, req.Days)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, record)
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "borrowingID")
	if !ok {
		return
	}
	var req struct {
		Damage DamageLevel `json:"damage,omitempty"`
	}
	if err := web.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.service.Return(r.Context(), id, req.Damage)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, result)
}

func (h *Handler) handleForceReturn(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "borrowingID")
	if !ok {
		return
	}
	result, err := h.service.ForceReturn(r.Context(), id)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, result)
}

func (h *Handler) handleWaiveFees(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "borrowingID")
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := web.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	record, err := h.service.WaiveFees(r.Context(), id, req.Reason)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, record)
}

func (h *Handler) handleListByUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	q := r.URL.Query()
	var status *Status
	if s := q.Get("status"); s != "" {
		v := Status(s)
		status = &v
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	records, total, err := h.service.ListByUser(r.Context(), id, status, limit, offset)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, map[string]any{"borrowings": records, "total": total})
}

func (h *Handler) handleOpenByUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	records, err := h.service.OpenByUser(r.Context(), id)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, records)
}

func (h *Handler) handleListByBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "bookID")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := h.service.ListByBook(r.Context(), id, limit)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, records)
}

func (h *Handler) handleOverdue(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.Overdue(r.Context())
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, records)
}

func (h *Handler) handleDetectOverdue(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.DetectOverdue(r.Context())
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, map[string]int{"transitioned": count})
}
