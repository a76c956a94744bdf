package handler

import (
	"net/http"

	"github.com/mcoot/judgeportal/internal/api/apierr"
	"github.com/mcoot/judgeportal/internal/api/middleware"
	"github.com/mcoot/judgeportal/internal/api/response"
	"github.com/mcoot/judgeportal/internal/model"
)

// SnapshotSource returns the latest broadcast snapshot, or nil
type SnapshotSource interface {
	Latest() *model.Snapshot
}

// SnapshotHandler serves the latest broadcast state
type SnapshotHandler struct {
	source SnapshotSource
}

// NewSnapshotHandler creates a new snapshot handler
func NewSnapshotHandler(source SnapshotSource) *SnapshotHandler {
	return &SnapshotHandler{source: source}
}

// Get handles GET /api/v1/snapshot
func (h *SnapshotHandler) Get(w http.ResponseWriter, r *http.Request) {
	snapshot := h.source.Latest()
	if snapshot == nil {
		WriteError(w, apierr.NewSnapshotUnavailableError())
		return
	}

	viewer := middleware.MustGetViewer(r.Context())
	response.JSON(w, http.StatusOK, response.SnapshotFromModel(snapshot, viewer))
}
