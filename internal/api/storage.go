package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strconv"

	"github.com/JaimeStill/pestwatch/pkg/formatting"
	"github.com/JaimeStill/pestwatch/pkg/handlers"
	"github.com/JaimeStill/pestwatch/pkg/routes"
	"github.com/JaimeStill/pestwatch/pkg/storage"
)

// storageHandler lets reviewers browse artifacts by review prefix.
type storageHandler struct {
	store       storage.System
	logger      *slog.Logger
	maxListSize int
}

type objectView struct {
	storage.Object
	SizeText string `json:"size_text"`
}

type listing struct {
	Prefix  string       `json:"prefix"`
	Objects []objectView `json:"objects"`
}

func newStorageHandler(
	store storage.System,
	logger *slog.Logger,
	maxListSize int,
) *storageHandler {
	return &storageHandler{
		store:       store,
		logger:      logger.With("handler", "storage"),
		maxListSize: maxListSize,
	}
}

func (h *storageHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/storage",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.list},
			{Method: "GET", Pattern: "/download/{key...}", Handler: h.download},
		},
	}
}

func (h *storageHandler) list(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")

	limit := h.maxListSize
	if v := r.URL.Query().Get("max_results"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("invalid max_results: %q", v))
			return
		}
		limit = min(n, h.maxListSize)
	}

	objects, err := h.store.List(r.Context(), prefix, limit)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}

	views := make([]objectView, len(objects))
	for i, obj := range objects {
		views[i] = objectView{Object: obj, SizeText: formatting.FormatBytes(obj.Size, 1)}
	}

	handlers.RespondJSON(w, http.StatusOK, listing{Prefix: prefix, Objects: views})
}

func (h *storageHandler) download(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	data, err := h.store.Get(r.Context(), key)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set(
		"Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", path.Base(key)),
	)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
