package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/report-board/internal/models"
	"github.com/pribylovaa/report-board/internal/service"
	apierrors "github.com/pribylovaa/report-board/internal/transport/http/errors"
)

// RefreshResponse - ответ на принудительное обновление.
type RefreshResponse struct {
	View        models.ViewID      `json:"view"`
	Outcome     service.Outcome    `json:"outcome"`
	Fingerprint models.Fingerprint `json:"fingerprint"`
}

func viewParam(r *http.Request) (models.ViewID, error) {
	raw := chi.URLParam(r, "view")

	view, ok := models.ParseViewID(raw)
	if !ok {
		return "", fmt.Errorf("view %q: %w", raw, service.ErrUnknownView)
	}

	return view, nil
}

// Grouping отдаёт группировку представления из кэша.
func (h *Handlers) Grouping(w http.ResponseWriter, r *http.Request) {
	view, err := viewParam(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	g, state, err := h.Reports.CurrentGrouping(r.Context(), view)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.Header().Set(HeaderCacheState, string(state))
	writeJSON(w, http.StatusOK, g)
}

// FirmReports отдаёт некэшируемую группировку «по дням» для одной фирмы.
func (h *Handlers) FirmReports(w http.ResponseWriter, r *http.Request) {
	order, err := strconv.Atoi(chi.URLParam(r, "order"))
	if err != nil {
		apierrors.WriteError(w, r, fmt.Errorf("firm order: %w", service.ErrInvalidArgument))
		return
	}

	g, err := h.Reports.FirmReports(r.Context(), order)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, g)
}

// Refresh принудительно обновляет представление.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	view, err := viewParam(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out, fp, err := h.Reports.ForceRefresh(r.Context(), view)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, RefreshResponse{View: view, Outcome: out, Fingerprint: fp})
}
