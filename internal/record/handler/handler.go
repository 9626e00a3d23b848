// Package handler is the HTTP transport for records. It decodes requests,
// delegates to the service, and encodes responses; no business rules live
// here.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"recordvault/internal/record/models"
	"recordvault/internal/record/service"
	"recordvault/pkg/platform/httputil"

	id "recordvault/pkg/domain"
	dErrors "recordvault/pkg/domain-errors"
)

type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: svc, logger: logger.With(slog.String("component", "record-handler"))}
}

// Routes mounts the record endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/records", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/by-ref/{ref}", h.GetByRef)
		r.Route("/{recordID}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Patch("/", h.Update)
			r.Delete("/", h.Delete)
		})
	})
	r.Delete("/owners/{ownerID}/records", h.PurgeOwner)
}

type createRequest struct {
	ID          string     `json:"id"`
	ExternalRef string     `json:"external_ref"`
	CreatedAt   *time.Time `json:"created_at"`

	Title        string            `json:"title"`
	Status       string            `json:"status"`
	Priority     string            `json:"priority"`
	Category     string            `json:"category"`
	Score        *decimal.Decimal  `json:"score"`
	Amount       *decimal.Decimal  `json:"amount"`
	Counter      *int64            `json:"counter"`
	IsPublished  bool              `json:"is_published"`
	IsFeatured   bool              `json:"is_featured"`
	Tags         []string          `json:"tags"`
	ScoreHistory []decimal.Decimal `json:"score_history"`
	RelatedIDs   []string          `json:"related_ids"`
	Metadata     map[string]any    `json:"metadata"`
	Config       map[string]any    `json:"config"`
	ValidRange   *models.IntRange  `json:"valid_range"`
	ActivePeriod *models.TimeRange `json:"active_period"`
	PublishedAt  *time.Time        `json:"published_at"`
	ExpiresAt    *time.Time        `json:"expires_at"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httputil.DecodeJSON(r.Body, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	input := service.CreateInput{
		ID:          req.ID,
		ExternalRef: req.ExternalRef,
		CreatedAt:   req.CreatedAt,
		Draft: models.Draft{
			Title:        req.Title,
			Score:        req.Score,
			Amount:       req.Amount,
			Counter:      req.Counter,
			IsPublished:  req.IsPublished,
			IsFeatured:   req.IsFeatured,
			Tags:         req.Tags,
			ScoreHistory: req.ScoreHistory,
			Metadata:     req.Metadata,
			Config:       req.Config,
			ValidRange:   req.ValidRange,
			ActivePeriod: req.ActivePeriod,
			PublishedAt:  req.PublishedAt,
			ExpiresAt:    req.ExpiresAt,
		},
	}

	if req.Status != "" {
		status, err := models.ParseStatus(req.Status)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeConstraintViolation, "invalid status"))
			return
		}
		input.Draft.Status = status
	}
	if req.Priority != "" {
		priority, err := models.ParsePriority(req.Priority)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeConstraintViolation, "invalid priority"))
			return
		}
		input.Draft.Priority = priority
	}
	if req.Category != "" {
		category, err := models.ParseCategory(req.Category)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeConstraintViolation, "invalid category"))
			return
		}
		input.Draft.Category = category
	}
	related, err := parseRecordIDs(req.RelatedIDs)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	input.Draft.RelatedIDs = related

	rec, err := h.service.Create(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, rec)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	recordID, err := id.ParseRecordID(chi.URLParam(r, "recordID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rec, err := h.service.Get(r.Context(), recordID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) GetByRef(w http.ResponseWriter, r *http.Request) {
	ref, err := id.ParseExternalRef(chi.URLParam(r, "ref"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rec, err := h.service.GetByExternalRef(r.Context(), ref)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

type updateRequest struct {
	Title        *string           `json:"title"`
	Status       *string           `json:"status"`
	Priority     *string           `json:"priority"`
	Category     *string           `json:"category"`
	Score        *decimal.Decimal  `json:"score"`
	Amount       *decimal.Decimal  `json:"amount"`
	Counter      *int64            `json:"counter"`
	IsPublished  *bool             `json:"is_published"`
	IsFeatured   *bool             `json:"is_featured"`
	Tags         []string          `json:"tags"`
	ScoreHistory []decimal.Decimal `json:"score_history"`
	RelatedIDs   []string          `json:"related_ids"`
	Metadata     map[string]any    `json:"metadata"`
	Config       map[string]any    `json:"config"`
	ValidRange   *models.IntRange  `json:"valid_range"`
	ActivePeriod *models.TimeRange `json:"active_period"`
	PublishedAt  *time.Time        `json:"published_at"`
	ExpiresAt    *time.Time        `json:"expires_at"`

	OwnerID           *string    `json:"owner_id"`
	ExpectedUpdatedAt *time.Time `json:"expected_updated_at"`
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	recordID, err := id.ParseRecordID(chi.URLParam(r, "recordID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req updateRequest
	if err := httputil.DecodeJSON(r.Body, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	input := service.UpdateInput{
		Title:             req.Title,
		Score:             req.Score,
		Amount:            req.Amount,
		Counter:           req.Counter,
		IsPublished:       req.IsPublished,
		IsFeatured:        req.IsFeatured,
		Tags:              req.Tags,
		ScoreHistory:      req.ScoreHistory,
		Metadata:          req.Metadata,
		Config:            req.Config,
		ValidRange:        req.ValidRange,
		ActivePeriod:      req.ActivePeriod,
		PublishedAt:       req.PublishedAt,
		ExpiresAt:         req.ExpiresAt,
		ExpectedUpdatedAt: req.ExpectedUpdatedAt,
	}

	if req.Status != nil {
		status, err := models.ParseStatus(*req.Status)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeConstraintViolation, "invalid status"))
			return
		}
		input.Status = &status
	}
	if req.Priority != nil {
		priority, err := models.ParsePriority(*req.Priority)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeConstraintViolation, "invalid priority"))
			return
		}
		input.Priority = &priority
	}
	if req.Category != nil {
		category, err := models.ParseCategory(*req.Category)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeConstraintViolation, "invalid category"))
			return
		}
		input.Category = &category
	}
	if req.RelatedIDs != nil {
		related, err := parseRecordIDs(req.RelatedIDs)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		input.RelatedIDs = related
	}
	if req.OwnerID != nil {
		ownerID, err := id.ParseOwnerID(*req.OwnerID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		input.OwnerID = &ownerID
	}

	rec, err := h.service.Update(r.Context(), recordID, input)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	recordID, err := id.ParseRecordID(chi.URLParam(r, "recordID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), recordID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var input service.ListInput

	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := models.ParseStatus(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid status filter"))
			return
		}
		input.Status = &status
	}
	if raw := r.URL.Query().Get("category"); raw != "" {
		category, err := models.ParseCategory(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid category filter"))
			return
		}
		input.Category = &category
	}

	recs, err := h.service.List(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"records": recs})
}

func (h *Handler) PurgeOwner(w http.ResponseWriter, r *http.Request) {
	ownerID, err := id.ParseOwnerID(chi.URLParam(r, "ownerID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	removed, err := h.service.PurgeOwner(r.Context(), ownerID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int{"records_removed": removed})
}

func parseRecordIDs(raw []string) ([]id.RecordID, error) {
	if raw == nil {
		return nil, nil
	}
	out := make([]id.RecordID, 0, len(raw))
	for _, s := range raw {
		recordID, err := id.ParseRecordID(s)
		if err != nil {
			return nil, err
		}
		out = append(out, recordID)
	}
	return out, nil
}
