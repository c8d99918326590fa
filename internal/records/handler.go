package records

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/pestwatch/pkg/handlers"
	"github.com/JaimeStill/pestwatch/pkg/pagination"
	"github.com/JaimeStill/pestwatch/pkg/routes"
)

// Handler provides HTTP endpoints for record queries.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// SearchRequest combines pagination and filter criteria for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	Filters
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "records"),
		pagination: pagination,
	}
}

// Routes returns the public record lookup endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/records",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{ref}", Handler: h.Find},
		},
	}
}

// AdminRoutes returns the record listing endpoints intended for reviewers.
func (h *Handler) AdminRoutes() routes.Group {
	return routes.Group{
		Prefix: "/records",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/pending", Handler: h.Pending},
			{Method: "GET", Pattern: "/location", Handler: h.ByLocation},
			{Method: "POST", Pattern: "/search", Handler: h.Search},
		},
	}
}

// Find returns a record by id or stored filename.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	rec, err := h.sys.Resolve(r.Context(), r.PathValue("ref"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, rec)
}

// List returns a paginated list of records with optional query parameter filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	if filters.Status != nil && !filters.Status.Valid() {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidStatus)
		return
	}

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Pending returns every pending record, newest first.
func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	items, err := h.sys.ListByStatus(r.Context(), StatusPending)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, items)
}

// ByLocation returns records matching the city and country query parameters.
func (h *Handler) ByLocation(w http.ResponseWriter, r *http.Request) {
	var city, country *string
	if c := r.URL.Query().Get("city"); c != "" {
		city = &c
	}
	if c := r.URL.Query().Get("country"); c != "" {
		country = &c
	}

	items, err := h.sys.ListByLocation(r.Context(), city, country)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, items)
}

// Search accepts a JSON body with pagination and filter criteria and returns matching records.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	req.PageRequest.Normalize(h.pagination)

	result, err := h.sys.List(r.Context(), req.PageRequest, req.Filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}
