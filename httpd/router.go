package httpd

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.AllowOrigin
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewRouter mounts every route whose backing service is set on srv.
func NewRouter(srv *Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(srv.cors)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/relay", srv.handleRelay())
	r.Post("/relay", srv.handleRelay())

	if srv.Search != nil {
		r.Get("/search", srv.handleSearch())
	}

	if srv.Player != nil {
		if srv.hub == nil {
			srv.hub = newEventHub(srv.Player)
		}
		r.Get("/ws", srv.handleEvents())

		r.Route("/player", func(r chi.Router) {
			r.Get("/state", srv.handleState())
			r.Post("/play", srv.handlePlay())
			r.Post("/random/{genre}", srv.handleRandom())
			r.Post("/pause", srv.handleControl(srv.Player.Pause))
			r.Post("/resume", srv.handleControl(srv.Player.Resume))
			r.Post("/stop", srv.handleControl(srv.Player.Stop))
			r.Put("/volume", srv.handleVolume())
			r.Put("/rate", srv.handleRate())
			r.Put("/seek", srv.handleSeek())
			r.Post("/loop", srv.handleLoopSection())
			r.Delete("/loop", srv.handleControl(srv.Player.CancelLoopSection))
			r.Put("/native-loop", srv.handleNativeLoop())
		})
	}

	if srv.Downloader != nil && srv.Player != nil {
		r.Post("/downloads", srv.handleCreateDownload())
		r.Get("/downloads/{taskID}", srv.handleGetTaskStatus())
	}

	if srv.Store != nil {
		r.Route("/library", func(r chi.Router) {
			r.Get("/tags/{tag}", srv.handleTracksByTag())
			r.Get("/history", srv.handleHistory())
			r.Get("/most-played", srv.handleMostPlayed())
			r.Post("/playlists", srv.handleCreatePlaylist())
			r.Get("/playlists/{playlistID}", srv.handleGetPlaylist())
			r.Post("/playlists/{playlistID}/tracks", srv.handleAddToPlaylist())
		})
		r.Get("/stream/{trackID}", srv.handleStreamTrack())
	}

	return r
}

// Close disconnects websocket clients and detaches from the player.
func (s *Server) Close() {
	if s.hub != nil {
		s.hub.Close()
	}
}
