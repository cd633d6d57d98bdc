package tasks

import (
	"net/http"
	"strings"
	"time"

	"github.com/noah-isme/toko-cart/internal/common"
)

// StatsHandler serves the daily sales aggregate to admins.
type StatsHandler struct {
	Stats SalesStats
	Now   func() time.Time
}

// Daily handles GET /api/v1/admin/stats/daily?date=YYYY-MM-DD. The date defaults to today (UTC).
func (h StatsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		now := time.Now
		if h.Now != nil {
			now = h.Now
		}
		date = now().UTC().Format(dateLayout)
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "date must be formatted as YYYY-MM-DD", map[string]any{"field": "date"})
		return
	}
	out, err := h.Stats.Daily(r.Context(), date)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}
