package httpd

import (
	"log"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func limitParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (s *Server) handleTracksByTag() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tracks, err := s.Store.TracksByTag(r.Context(), chi.URLParam(r, "tag"), limitParam(r))
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, tracks)
	}
}

func (s *Server) handleHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plays, err := s.Store.RecentPlays(r.Context(), limitParam(r))
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, plays)
	}
}

func (s *Server) handleMostPlayed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tracks, err := s.Store.MostPlayed(r.Context(), limitParam(r))
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, tracks)
	}
}

func (s *Server) handleCreatePlaylist() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}

		id, err := s.Store.SavePlaylist(r.Context(), req.Name)
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusCreated, map[string]any{"id": id, "name": req.Name})
	}
}

func playlistID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "playlistID"), 10, 64)
	if err != nil {
		http.Error(w, "invalid playlist ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (s *Server) handleAddToPlaylist() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := playlistID(w, r)
		if !ok {
			return
		}
		var req struct {
			TrackID string `json:"track_id"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}

		if _, err := s.Store.GetTrack(r.Context(), req.TrackID); err != nil {
			respondWithError(w, err)
			return
		}
		if err := s.Store.AddTrackToPlaylist(r.Context(), id, req.TrackID); err != nil {
			respondWithError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleGetPlaylist() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := playlistID(w, r)
		if !ok {
			return
		}
		p, err := s.Store.GetPlaylist(r.Context(), id)
		if err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, p)
	}
}

// handleStreamTrack serves the downloaded copy of a stored track.
func (s *Server) handleStreamTrack() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		track, err := s.Store.GetTrack(r.Context(), chi.URLParam(r, "trackID"))
		if err != nil {
			respondWithError(w, err)
			return
		}

		if track.FilePath == "" {
			http.Error(w, "track is not downloaded", http.StatusNotFound)
			return
		}
		if _, err := os.Stat(track.FilePath); err != nil {
			http.Error(w, "track file is missing", http.StatusNotFound)
			return
		}

		log.Printf("Streaming track: %s", track.Title)
		http.ServeFile(w, r, track.FilePath)
	}
}
