package httpd

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"cryogon/rizumu-udio/models"
	"cryogon/rizumu-udio/player"
	"cryogon/rizumu-udio/player/playertest"
	"cryogon/rizumu-udio/store"
	"cryogon/rizumu-udio/transport"
)

type stubSearcher struct {
	mu      sync.Mutex
	result  models.SearchResult
	err     error
	queries []models.Query
}

func (s *stubSearcher) Search(ctx context.Context, q models.Query) (*models.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	if s.err != nil {
		return nil, s.err
	}
	res := s.result
	res.Tracks = append([]models.Track(nil), s.result.Tracks...)
	return &res, nil
}

func (s *stubSearcher) lastQuery() models.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries[len(s.queries)-1]
}

type failingFetcher struct{}

func (failingFetcher) Do(context.Context, *transport.Request) (*transport.Response, error) {
	return nil, errors.New("offline")
}

func sampleTrack(id string, tags ...string) models.Track {
	return models.Track{
		ID:          id,
		Artist:      "Nova",
		Title:       "Song " + id,
		URL:         "https://cdn.test/" + id + ".mp3",
		Tags:        tags,
		PublishedAt: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "rizumu.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// newTestServer wires a controller over stub handles, a stub searcher and a temp store.
func newTestServer(t *testing.T, searcher *stubSearcher) *Server {
	t.Helper()
	srv := &Server{
		Player: player.NewController(playertest.Factory(), searcher),
		Search: searcher,
		Store:  newTestStore(t),
	}
	t.Cleanup(srv.Close)
	return srv
}
