// Package httpd exposes search, playback, downloads and the local library over HTTP.
package httpd

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"cryogon/rizumu-udio/downloader"
	"cryogon/rizumu-udio/models"
	"cryogon/rizumu-udio/player"
	"cryogon/rizumu-udio/store"
	"cryogon/rizumu-udio/transport"
)

// Searcher is the search capability the search endpoint needs.
type Searcher interface {
	Search(ctx context.Context, q models.Query) (*models.SearchResult, error)
}

type Server struct {
	Player     *player.Controller
	Search     Searcher
	Store      *store.Store
	Downloader *downloader.Service
	// Relay performs the upstream call for /relay. Nil uses a direct fetcher.
	Relay transport.Fetcher
	// AllowOrigin is sent as Access-Control-Allow-Origin. Empty means "*".
	AllowOrigin string

	hub *eventHub
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload == nil {
		return
	}
	err := json.NewEncoder(w).Encode(payload)
	if err != nil {
		log.Printf("ERROR: Failed to encode JSON response: %v", err)
	}
}

func respondWithError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, player.ErrNoMatch),
		errors.Is(err, player.ErrNoTracksFound),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, downloader.ErrTaskNotFound):
		code = http.StatusNotFound
	case errors.Is(err, player.ErrInvalidSection),
		errors.Is(err, downloader.ErrNoURL),
		errors.Is(err, store.ErrPlaceholder):
		code = http.StatusBadRequest
	case errors.Is(err, player.ErrNotLoaded),
		errors.Is(err, player.ErrLoadSuperseded):
		code = http.StatusConflict
	case errors.Is(err, transport.ErrExhausted),
		errors.Is(err, transport.ErrParse),
		errors.Is(err, player.ErrPlayback):
		code = http.StatusBadGateway
	case errors.Is(err, downloader.ErrClosed),
		errors.Is(err, downloader.ErrQueueFull),
		errors.Is(err, player.ErrNoSearcher):
		code = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		code = 499
	}
	if code >= http.StatusInternalServerError {
		log.Printf("ERROR: %v", err)
	}
	respondWithJSON(w, code, map[string]string{"error": err.Error()})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		log.Printf("ERROR: decoding request: %v", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return false
	}
	return true
}

// recordPlay stores the track and a history row. Failures are logged; playback has already started.
func (s *Server) recordPlay(ctx context.Context, t models.Track) {
	if s.Store == nil || t.Placeholder {
		return
	}
	if err := s.Store.RecordPlayback(ctx, t); err != nil {
		log.Printf("[http] Recording play of %s: %v", t.ID, err)
	}
}
