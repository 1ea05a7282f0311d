package http

import (
	"log/slog"
	"net/http"

	"networth/internal/core"
)

type snapshotResponse struct {
	ID       int64  `json:"id"`
	Date     string `json:"date"`
	NetWorth string `json:"networth"`
}

func toSnapshotResponse(s core.Snapshot) snapshotResponse {
	return snapshotResponse{
		ID:       s.ID,
		Date:     s.Date.String(),
		NetWorth: s.NetWorth.String(),
	}
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		snaps, err := s.ledger.ListSnapshots(r.Context())
		if err != nil {
			slog.ErrorContext(r.Context(), "Failed to list snapshots", "error", err)
			writeError(w, r, http.StatusInternalServerError, "failed to list snapshots")
			return
		}
		out := make([]snapshotResponse, 0, len(snaps))
		for _, snap := range snaps {
			out = append(out, toSnapshotResponse(snap))
		}
		writeJSON(w, r, http.StatusOK, out)

	case http.MethodPost:
		// The middleware already records today; an explicit POST makes the
		// intent visible and reports failures instead of logging them.
		if err := s.ledger.RecordTodaySnapshot(r.Context()); err != nil {
			slog.ErrorContext(r.Context(), "Failed to record snapshot", "error", err)
			writeError(w, r, http.StatusInternalServerError, "failed to record snapshot")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		methodNotAllowed(w, "GET, POST")
	}
}
