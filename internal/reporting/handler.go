package reporting

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/FCHEHIDI/Library-Management-System/internal/web"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the reporting endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/library", h.handleLibraryStats)
	r.Get("/dashboard", h.handleDashboardStats)
	r.Get("/trends", h.handleTrends)
	r.Get("/categories", h.handleCategoryPerformance)
	r.Get("/top-borrowers", h.handleTopBorrowers)
	return r
}

func (h *Handler) handleLibraryStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.LibraryStats(r.Context())
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, stats)
}

func (h *Handler) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.DashboardStats(r.Context())
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, stats)
}

func (h *Handler) handleTrends(w http.ResponseWriter, r *http.Request) {
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	trends, err := h.service.BorrowingTrends(r.Context(), days)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, trends)
}

func (h *Handler) handleCategoryPerformance(w http.ResponseWriter, r *http.Request) {
	perf, err := h.service.CategoryPerformance(r.Context())
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, perf)
}

func (h *Handler) handleTopBorrowers(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	top, err := h.service.TopBorrowers(r.Context(), limit)
	if err != nil {
		web.Error(w, err)
		return
	}
	web.Respond(w, http.StatusOK, top)
}
