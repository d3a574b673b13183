package catalog

import (
	"context"
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

// Routes mounts the catalog endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.handleAdd)
	r.Get("/", h.handleList)
	r.Get("/search", h.handleSearch)
	r.Get("/new-arrivals", h.handleNewArrivals)
	r.Get("/trending", h.handleTrending)
	r.Get("/popular", h.handlePopular)
	r.Get("/isbn/{isbn}", h.handleGetByISBN)
	r.Get("/isbn/{isbn}/copies", h.handleAvailableCopies)

	r.Route("/{bookID}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Patch("/", h.handleUpdate)
		r.Delete("/", h.handleRemove)
		r.Get("/availability", h.handleAvailability)
		r.Post("/lost", h.handleMarkLost)
		r.Post("/damaged", h.handleMarkDamaged)
		r.Post("/repair", h.handleRepair)
		r.Post("/relocate", h.handleRelocate)
	})
	return r
}

func bookID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		http.Error(w, "invalid book ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ISBN          string   `json:"isbn"`
		Title         string   `json:"title"`
		Author        string   `json:"author"`
		Publisher     string   `json:"publisher"`
		YearPublished int      `json:"year_published"`
		Category      Category `json:"category"`
		Location      string   `json:"location"`
		Description   string   `json:"description"`
		Language      string   `json:"language"`
		PageCount     int      `json:"page_count"`
		BasePrice     float64  `json:"base_price"`
	}
	if err := web.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	book, err := h.service.Add(r.Context(), AddInput{
		ISBN:          req.ISBN,
		Title:         req.Title,
		Author:        req.Author,
		Publisher:     req.Publisher,
		YearPublished: req.YearPublished,
		Category:      req.Category,
		Location:      req.Location,
		Description:   req.Description,
		Language:      req.Language,
		PageCount:     req.PageCount,
		BasePrice:     req.BasePrice,
	})
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusCreated, book)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}
	book, err := h.service.Get(r.Context(), id)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, book)
}

func (h *Handler) handleGetByISBN(w http.ResponseWriter, r *http.Request) {
	book, err := h.service.GetByISBN(r.Context(), chi.URLParam(r, "isbn"))
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, book)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}

	var req Update
	if err := web.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	book, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, book)
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}
	if err := h.service.Remove(r.Context(), id); err != nil {
		web.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	minRating, _ := strconv.ParseFloat(q.Get("min_rating"), 64)
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	books, total, err := h.service.Search(r.Context(), SearchFilter{
		Query:         q.Get("q"),
		Category:      Category(q.Get("category")),
		AvailableOnly: q.Get("available") == "true",
		MinRating:     minRating,
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, map[string]any{"books": books, "total": total})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var status *Status
	if s := q.Get("status"); s != "" {
		v := Status(s)
		status = &v
	}
	var category *Category
	if c := q.Get("category"); c != "" {
		v := Category(c)
		category = &v
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	books, total, err := h.service.List(r.Context(), status, category, limit, offset)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, map[string]any{"books": books, "total": total})
}

func (h *Handler) handleNewArrivals(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	books, err := h.service.NewArrivals(r.Context(), limit)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, books)
}

func (h *Handler) handleTrending(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	books, err := h.service.Trending(r.Context(), days, limit)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, books)
}

func (h *Handler) handlePopular(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	books, err := h.service.Popular(r.Context(), limit)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, books)
}

func (h *Handler) handleAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}
	av, err := h.service.CheckAvailability(r.Context(), id)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, av)
}

func (h *Handler) handleAvailableCopies(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.AvailableCopies(r.Context(), chi.URLParam(r, "isbn"))
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, map[string]int{"available_copies": count})
}

func (h *Handler) handleMarkLost(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.MarkLost)
}

func (h *Handler) handleMarkDamaged(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.MarkDamaged)
}

func (h *Handler) handleRepair(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Repair)
}

func (h *Handler) handleRelocate(w http.ResponseWriter, r *http.Request) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}
	var req struct {
		Location string `json:"location"`
	}
	if err := web.Decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	book, err := h.service.Relocate(r.Context(), id, req.Location)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, book)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id uuid.UUID) (*Book, error)) {
	id, ok := bookID(w, r)
	if !ok {
		return
	}
	book, err := op(r.Context(), id)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, book)
}
