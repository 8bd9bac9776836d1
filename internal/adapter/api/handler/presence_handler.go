package handler

import (
	"sort"

	"github.com/labstack/echo/v4"

	"studyhub/internal/domain/entity"
	"studyhub/internal/usecase"
	"studyhub/pkg/response"
)

// PresenceHandler answers from the in-process mirror; it never reads the
// presence store directly.
type PresenceHandler struct {
	tracker *usecase.PresenceTracker
}

func NewPresenceHandler(tracker *usecase.PresenceTracker) *PresenceHandler {
	return &PresenceHandler{
		tracker: tracker,
	}
}

func (h *PresenceHandler) ListPresence(c echo.Context) error {
	snapshot := h.tracker.Cache().Snapshot()
	records := make([]entity.PresenceRecord, 0, len(snapshot))
	for uid, r := range snapshot {
		r.UID = uid
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].UID < records[j].UID })

	return response.List(c, records, len(records))
}

// GetPresence reports an unknown uid as offline rather than not found.
func (h *PresenceHandler) GetPresence(c echo.Context) error {
	uid := c.Param("uid")
	record, ok := h.tracker.Cache().Lookup(uid)
	if !ok {
		record = entity.PresenceRecord{UID: uid}
	}
	record.UID = uid

	return response.Success(c, record)
}
