package httpd

import (
	"net/http"
	"strings"
	"time"

	"cryogon/rizumu-udio/player"

	"github.com/go-chi/chi/v5"
)

type playRequest struct {
	Input   string   `json:"input"`
	TrackID string   `json:"track_id"`
	Volume  *float64 `json:"volume"`
	Rate    float64  `json:"rate"`
	Loop    bool     `json:"loop"`
}

func (p playRequest) options() player.LoadOptions {
	return player.LoadOptions{Volume: p.Volume, PlaybackRate: p.Rate, Loop: p.Loop, Autoplay: true}
}

type sectionRequest struct {
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Repetitions int     `json:"repetitions"`
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

func (s *Server) handlePlay() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req playRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		var in player.Input
		switch {
		case req.TrackID != "" && s.Store != nil:
			t, err := s.Store.GetTrack(r.Context(), req.TrackID)
			if err != nil {
				respondWithError(w, err)
				return
			}
			in.Track = t
		case strings.TrimSpace(req.Input) != "":
			in = player.ParseInput(req.Input)
		default:
			http.Error(w, "input is required", http.StatusBadRequest)
			return
		}

		track, err := s.Player.Play(r.Context(), in, req.options())
		if err != nil {
			respondWithError(w, err)
			return
		}
		s.recordPlay(r.Context(), track)
		respondWithJSON(w, http.StatusOK, track)
	}
}

func (s *Server) handleRandom() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		genre := chi.URLParam(r, "genre")
		track, err := s.Player.PlayRandomByGenre(r.Context(), genre, player.LoadOptions{Autoplay: true})
		if err != nil {
			respondWithError(w, err)
			return
		}
		s.recordPlay(r.Context(), track)
		respondWithJSON(w, http.StatusOK, track)
	}
}

// handleControl wraps the argument-free transport controls.
func (s *Server) handleControl(action func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		action()
		respondWithJSON(w, http.StatusOK, s.Player.State())
	}
}

func (s *Server) handleVolume() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Volume float64 `json:"volume"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Volume < 0 || req.Volume > 1 {
			http.Error(w, "volume must be within [0, 1]", http.StatusBadRequest)
			return
		}
		s.Player.SetVolume(req.Volume)
		respondWithJSON(w, http.StatusOK, s.Player.State())
	}
}

func (s *Server) handleRate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Rate float64 `json:"rate"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		s.Player.SetPlaybackRate(req.Rate)
		respondWithJSON(w, http.StatusOK, s.Player.State())
	}
}

func (s *Server) handleSeek() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Seconds float64 `json:"seconds"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		s.Player.Seek(seconds(req.Seconds))
		respondWithJSON(w, http.StatusOK, s.Player.State())
	}
}

func (s *Server) handleLoopSection() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sectionRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		sec := player.Section{Start: seconds(req.Start), End: seconds(req.End), Repetitions: req.Repetitions}
		if err := s.Player.LoopSection(sec); err != nil {
			respondWithError(w, err)
			return
		}
		respondWithJSON(w, http.StatusOK, s.Player.State())
	}
}

func (s *Server) handleNativeLoop() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Enabled bool `json:"enabled"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		s.Player.SetLoop(req.Enabled)
		respondWithJSON(w, http.StatusOK, s.Player.State())
	}
}

func (s *Server) handleState() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, s.Player.State())
	}
}
