package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/kasraf/reelbase/internal/activity"
	"github.com/kasraf/reelbase/internal/model"
)

// activityPageSize is fixed; the admin UI pages through 10 entries at a time.
const activityPageSize = 10

// AdminHandler serves the admin back-office endpoints.
type AdminHandler struct {
	Activity activity.Reader
}

func NewAdminHandler(reader activity.Reader) *AdminHandler {
	return &AdminHandler{Activity: reader}
}

type activityStats struct {
	DeleteActions  int `json:"delete_actions"`
	DistinctActors int `json:"distinct_actors"`
}

type activityPageResp struct {
	Entries []model.ActivityView `json:"entries"`
	Page    int                  `json:"page"`
	Total   int64                `json:"total"`
	Stats   activityStats        `json:"stats"`
}

// ActivityLog lists audit entries, newest first.  Stats are computed over
// the returned page only, not over the whole table; the UI shows them as
// per-page figures.
func (h *AdminHandler) ActivityLog(c echo.Context) error {
	page := 1
	if p := c.QueryParam("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid page"})
		}
		page = n
	}

	entries, total, err := h.Activity.Page(c.Request().Context(), page, activityPageSize)
	if err != nil {
		return respondError(c, "admin activity", err)
	}

	stats := activityStats{}
	actors := make(map[string]bool, len(entries))
	for _, e := range entries {
		if strings.Contains(e.Action, "delete") {
			stats.DeleteActions++
		}
		actors[e.ActorID] = true
	}
	stats.DistinctActors = len(actors)

	if entries == nil {
		entries = []model.ActivityView{}
	}
	return c.JSON(http.StatusOK, activityPageResp{
		Entries: entries,
		Page:    page,
		Total:   total,
		Stats:   stats,
	})
}
