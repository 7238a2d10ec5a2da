package handler

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/tokenmeter/tokenmeter-api/internal/errors"
	"github.com/tokenmeter/tokenmeter-api/internal/httputil"
	"github.com/tokenmeter/tokenmeter-api/internal/model"
	"github.com/tokenmeter/tokenmeter-api/internal/service"
	"github.com/tokenmeter/tokenmeter-api/internal/util"
)

type SpendingService interface {
	List(ctx context.Context, filter model.SpendingFilter) ([]model.SpendingEntry, error)
	Summary(ctx context.Context, teamID string, start, end *time.Time) (*model.SpendingSummary, error)
	Import(ctx context.Context, teamID string, rows []service.ImportRow) (int, error)
}

// SpendingMiddleware configures the /api/spending routes. Access is required;
// ImportLimit caps upload bodies and Timeout bounds every route except the
// event stream.
type SpendingMiddleware struct {
	Access      func(http.Handler) http.Handler
	ImportLimit func(http.Handler) http.Handler
	Timeout     func(http.Handler) http.Handler
}

type SpendingHandler struct {
	spending SpendingService
	mw       SpendingMiddleware
	events   http.Handler
}

// NewSpendingHandler wires /api/spending. events serves the live stream and
// may be nil.
func NewSpendingHandler(spending SpendingService, mw SpendingMiddleware, events http.Handler) *SpendingHandler {
	return &SpendingHandler{
		spending: spending,
		mw:       mw,
		events:   events,
	}
}

func (h *SpendingHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/{teamId}", func(r chi.Router) {
		r.Use(h.mw.Access)

		r.Group(func(r chi.Router) {
			if h.mw.Timeout != nil {
				r.Use(h.mw.Timeout)
			}
			r.Get("/", h.List)
			r.Get("/summary", h.Summary)

			if h.mw.ImportLimit != nil {
				r.With(h.mw.ImportLimit).Post("/import", h.Import)
			} else {
				r.Post("/import", h.Import)
			}
		})

		if h.events != nil {
			r.Get("/events", h.events.ServeHTTP)
		}
	})

	return r
}

func (h *SpendingHandler) List(w http.ResponseWriter, r *http.Request) {
	start, err := parseDateParam(r, "startDate")
	if err != nil {
		writeError(w, err)
		return
	}
	end, err := parseDateParam(r, "endDate")
	if err != nil {
		writeError(w, err)
		return
	}

	var providerID *string
	if raw := r.URL.Query().Get("providerId"); raw != "" {
		if !util.IsValidUUID(raw) {
			writeError(w, apperrors.InvalidInput("providerId", "must be a valid UUID"))
			return
		}
		providerID = &raw
	}

	page := ParsePagination(r)
	entries, err := h.spending.List(r.Context(), model.SpendingFilter{
		TeamID:     teamID(r),
		StartDate:  start,
		EndDate:    end,
		ProviderID: providerID,
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *SpendingHandler) Summary(w http.ResponseWriter, r *http.Request) {
	start, err := parseDateParam(r, "startDate")
	if err != nil {
		writeError(w, err)
		return
	}
	end, err := parseDateParam(r, "endDate")
	if err != nil {
		writeError(w, err)
		return
	}

	summary, err := h.spending.Summary(r.Context(), teamID(r), start, end)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"summary": summary})
}

type importRequest struct {
	Entries []service.ImportRow `json:"entries"`
}

// Import accepts {"entries": [...]} or a text/csv document.
func (h *SpendingHandler) Import(w http.ResponseWriter, r *http.Request) {
	rows, err := readImportRows(r)
	if err != nil {
		writeError(w, err)
		return
	}

	count, err := h.spending.Import(r.Context(), teamID(r), rows)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]any{
		"message":  fmt.Sprintf("Imported %d spending entries", count),
		"imported": count,
	})
}

func readImportRows(r *http.Request) ([]service.ImportRow, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/csv" {
		return service.ParseImportCSV(r.Body)
	}

	var req importRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		return nil, err
	}
	return req.Entries, nil
}
