package attachment

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"recordvault/pkg/platform/httputil"
)

// Handler is the HTTP transport for attachments.
type Handler struct {
	facade *Facade
	logger *slog.Logger
}

func NewHandler(facade *Facade, logger *slog.Logger) *Handler {
	return &Handler{facade: facade, logger: logger.With(slog.String("component", "attachment-handler"))}
}

// Routes mounts the attachment endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/attachments/{ownerID}/{recordID}/{filename}", func(r chi.Router) {
		r.Put("/", h.Upload)
		r.Get("/", h.Download)
		r.Delete("/", h.Delete)
	})
}

func pathFromRequest(r *http.Request) (Path, error) {
	raw := chi.URLParam(r, "ownerID") + "/" + chi.URLParam(r, "recordID") + "/" + chi.URLParam(r, "filename")
	return ParsePath(raw)
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	p, err := pathFromRequest(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	// One byte of slack so the facade can tell "at the limit" from "over it"
	// without trusting Content-Length.
	body := http.MaxBytesReader(w, r.Body, MaxBlobSize+1)
	defer body.Close()

	if err := h.facade.Upload(r.Context(), p, r.Header.Get("Content-Type"), body); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	p, err := pathFromRequest(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rc, err := h.facade.Download(r.Context(), p)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.WarnContext(r.Context(), "attachment stream interrupted", "path", p.String(), "error", err)
	}
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	p, err := pathFromRequest(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.facade.Delete(r.Context(), p); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
