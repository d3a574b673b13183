package comments

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

// Routes mounts the comment endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.handleAdd)
	r.Get("/pending", h.handlePending)
	r.Get("/book/{bookID}", h.handleByBook)
	r.Get("/user/{userID}", h.handleByUser)

	r.Route("/{commentID}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Patch("/", h.handleEdit)
		r.Delete("/", h.handleDelete)
		r.Post("/flag", h.handleFlag)
		r.Post("/approve", h.handleApprove)
		r.Post("/reject", h.handleReject)
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

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  uuid.UUID `json:"user_id"`
		BookID  uuid.UUID `json:"book_id"`
		Rating  int       `json:"rating"`
		Content string    `json:"content"`
	}
	if err := web.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	comment, err := h.service.Add(r.Context(), req.UserID, req.BookID, req.Rating, req.Content)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusCreated, comment)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "commentID")
	if !ok {
		return
	}
	comment, err := h.service.Get(r.Context(), id)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, comment)
}

func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "commentID")
	if !ok {
		return
	}
	var req struct {
		UserID  uuid.UUID `json:"user_id"`
		Rating  *int      `json:"rating"`
		Content *string   `json:"content"`
	}
	if err := web.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	comment, err := h.service.Edit(r.Context(), id, req.UserID, EditInput{Rating: req.Rating, Content: req.Content})
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, comment)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "commentID")
	if !ok {
		return
	}
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		http.Error(w, "invalid user_id", http.StatusBadRequest)
		return
	}

	if err := h.service.Delete(r.Context(), id, userID); err != nil {
		web.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleFlag(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "commentID")
	if !ok {
		return
	}
	comment, err := h.service.Flag(r.Context(), id)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, comment)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "commentID")
	if !ok {
		return
	}
	comment, err := h.service.Approve(r.Context(), id)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, comment)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "commentID")
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

	comment, err := h.service.Reject(r.Context(), id, req.Reason)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, comment)
}

func (h *Handler) handleByBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "bookID")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.service.ApprovedByBook(r.Context(), id, limit)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, list)
}

func (h *Handler) handleByUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.service.ListByUser(r.Context(), id, limit)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, list)
}

func (h *Handler) handlePending(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.service.Pending(r.Context(), limit)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, list)
}
