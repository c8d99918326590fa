package predictions

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/pestwatch/internal/records"
	"github.com/JaimeStill/pestwatch/pkg/handlers"
	"github.com/JaimeStill/pestwatch/pkg/routes"
)

// multipartOverhead is the allowance for form fields and part headers on top of the image itself.
const multipartOverhead = 1 << 20

// Handler provides HTTP endpoints for submissions and reviews.
type Handler struct {
	sys           System
	logger        *slog.Logger
	maxUploadSize int64
}

// NewHandler creates a Handler with the given system, logger, and upload size limit.
func NewHandler(sys System, logger *slog.Logger, maxUploadSize int64) *Handler {
	return &Handler{
		sys:           sys,
		logger:        logger.With("handler", "predictions"),
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the submitter-facing endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/predict", Handler: h.Predict},
			{Method: "GET", Pattern: "/history/{submitterId}", Handler: h.History},
			{Method: "GET", Pattern: "/records/{ref}/artifact", Handler: h.Artifact},
		},
	}
}

// AdminRoutes returns the review endpoints.
func (h *Handler) AdminRoutes() routes.Group {
	return routes.Group{
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/approve/{ref}/{label}", Handler: h.Approve},
			{Method: "POST", Pattern: "/reject/{ref}", Handler: h.Reject},
			{Method: "DELETE", Pattern: "/records/{id}", Handler: h.Delete},
			{Method: "GET", Pattern: "/stats", Handler: h.Stats},
		},
	}
}

// Predict classifies a multipart image upload. The submitter is described by
// the rsbsaNumber, fullName, barangay, crop, area, and contact form fields.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartOverhead)

	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(w, ErrFileTooLarge)
			return
		}
		h.fail(w, errors.Join(ErrNoFile, err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.fail(w, errors.Join(ErrNoFile, err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.fail(w, errors.Join(ErrNoFile, err))
		return
	}

	cmd := SubmitCommand{
		Data:        data,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Submitter: records.Submitter{
			ID:       formValue(r, "rsbsaNumber"),
			FullName: formValue(r, "fullName"),
			Barangay: formValue(r, "barangay"),
			Crop:     formValue(r, "crop"),
			Area:     formValue(r, "area"),
			Contact:  formValue(r, "contact"),
		},
	}

	result, err := h.sys.Submit(r.Context(), cmd)
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// History returns the record summaries of one submitter, newest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	items, err := h.sys.History(r.Context(), r.PathValue("submitterId"))
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, items)
}

// Artifact streams the stored image of a record.
func (h *Handler) Artifact(w http.ResponseWriter, r *http.Request) {
	art, err := h.sys.Artifact(r.Context(), r.PathValue("ref"))
	if err != nil {
		h.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Data)))
	w.Header().Set("Content-Disposition", `inline; filename="`+art.StoredFilename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(art.Data)
}

// Approve marks a record approved with the label in the path.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	result, err := h.sys.Approve(r.Context(), r.PathValue("ref"), r.PathValue("label"))
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Reject marks a record rejected.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	result, err := h.sys.Reject(r.Context(), r.PathValue("ref"))
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Delete removes a record and its artifact.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.fail(w, ErrInvalidID)
		return
	}

	if err := h.sys.Delete(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

// Stats returns aggregate record counts.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.sys.Stats(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, stats)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	handlers.RespondErrorKind(w, h.logger, MapHTTPStatus(err), Kind(err), publicError(err), err)
}

func formValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.FormValue(key))
}
