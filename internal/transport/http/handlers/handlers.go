package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pribylovaa/report-board/internal/models"
	"github.com/pribylovaa/report-board/internal/service"
)

// HeaderCacheState - заголовок с состоянием выданной группировки.
const HeaderCacheState = "X-Cache-State"

// Reports - то, что хендлерам нужно от сервисного слоя.
type Reports interface {
	CurrentGrouping(ctx context.Context, view models.ViewID) (*models.Grouping, service.State, error)
	FirmReports(ctx context.Context, firmOrder int) (*models.Grouping, error)
	ForceRefresh(ctx context.Context, view models.ViewID) (service.Outcome, models.Fingerprint, error)
}

// Handlers агрегирует зависимости обработчиков.
type Handlers struct {
	Reports Reports
}

func New(r Reports) *Handlers {
	return &Handlers{Reports: r}
}

// writeJSON - единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}
