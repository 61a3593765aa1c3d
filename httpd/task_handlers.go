package httpd

import (
	"net/http"
	"strconv"

	"cryogon/rizumu-udio/downloader"
	"cryogon/rizumu-udio/models"
	"cryogon/rizumu-udio/player"

	"github.com/go-chi/chi/v5"
)

// handleCreateDownload queues the stored track named by track_id, or the current track when it is empty.
func (s *Server) handleCreateDownload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req downloader.DownloadPayload
		if !decodeJSON(w, r, &req) {
			return
		}

		var track models.Track
		switch {
		case req.TrackID != "" && s.Store != nil:
			t, err := s.Store.GetTrack(r.Context(), req.TrackID)
			if err != nil {
				respondWithError(w, err)
				return
			}
			track = *t
		case req.TrackID == "":
			t, ok := s.Player.CurrentTrack()
			if !ok {
				respondWithError(w, player.ErrNotLoaded)
				return
			}
			track = t
		default:
			http.Error(w, "library is not available", http.StatusServiceUnavailable)
			return
		}

		task, err := s.Downloader.CreateDownload(track)
		if err != nil {
			respondWithError(w, err)
			return
		}

		respondWithJSON(w, http.StatusAccepted, task)
	}
}

func (s *Server) handleGetTaskStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idStr := chi.URLParam(r, "taskID")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			http.Error(w, "invalid task ID", http.StatusBadRequest)
			return
		}

		task, err := s.Downloader.GetTaskStatus(id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		respondWithJSON(w, http.StatusOK, task)
	}
}
