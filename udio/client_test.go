package udio

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"cryogon/rizumu-udio/models"
	"cryogon/rizumu-udio/transport"
)

const sampleResponse = `{"data":[
	{"id":"a","artist":"Nova","title":"Old","song_path":"https://cdn.test/a.mp3","tags":["jazz","jazz","lofi"],"duration":90.5,"published_at":"2026-01-01T00:00:00Z","likes":3,"plays":10},
	{"id":"b","artist":"","title":"New","song_path":"https://cdn.test/b.mp3","tags":["jazz"],"duration":120,"published_at":"2026-02-01T00:00:00Z"},
	{"id":"c","title":"Broken"}
]}`

type searchServer struct {
	*httptest.Server
	requests atomic.Int32
	last     atomic.Value
}

func newSearchServer(t *testing.T, status int, body string) *searchServer {
	t.Helper()
	s := &searchServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		raw, _ := io.ReadAll(r.Body)
		s.last.Store(raw)
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *searchServer) lastBody(t *testing.T) searchRequest {
	t.Helper()
	raw, _ := s.last.Load().([]byte)
	var req searchRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		t.Fatalf("decoding request body %q: %v", raw, err)
	}
	return req
}

func newTestClient(s *searchServer, placeholders bool) *Client {
	direct := &transport.DirectFetcher{Client: s.Client()}
	chain := transport.NewChain(transport.Options{Mode: transport.ModeDirect, Fetcher: direct, Bare: direct})
	return NewClient(Options{Transport: chain, Endpoint: s.URL + "/songs/search", PageSize: 25, Placeholders: placeholders})
}

func TestSearch_UnfilteredAppliesDefaults(t *testing.T) {
	t.Parallel()

	s := newSearchServer(t, http.StatusOK, sampleResponse)
	client := newTestClient(s, false)

	res, err := client.Search(context.Background(), models.Query{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	body := s.lastBody(t)
	if body.SearchQuery.MaxAgeInHours != DefaultMaxAgeInHours {
		t.Errorf("maxAgeInHours = %d, want %d", body.SearchQuery.MaxAgeInHours, DefaultMaxAgeInHours)
	}
	if body.PageSize != 25 {
		t.Errorf("pageSize = %d, want 25", body.PageSize)
	}
	if body.SearchQuery.Sort != SortNewest {
		t.Errorf("sort = %q, want %q", body.SearchQuery.Sort, SortNewest)
	}
	if body.SearchQuery.ContainsTags != nil || body.SearchQuery.UserID != "" {
		t.Errorf("unfiltered query sent filters: %+v", body.SearchQuery)
	}

	if len(res.Tracks) != 2 {
		t.Fatalf("got %d tracks, want 2 (unplayable record dropped)", len(res.Tracks))
	}
	if res.Tracks[0].ID != "b" {
		t.Errorf("first track = %s, want most recent (b)", res.Tracks[0].ID)
	}
	if res.Tracks[0].Artist != "Unknown" {
		t.Errorf("blank artist mapped to %q", res.Tracks[0].Artist)
	}
	old := res.Tracks[1]
	if old.Duration != 90500*time.Millisecond || len(old.Tags) != 2 || old.Plays != 10 {
		t.Errorf("mapped track = %+v", old)
	}
	if res.Placeholder || res.Cached {
		t.Errorf("flags = placeholder:%v cached:%v, want both false", res.Placeholder, res.Cached)
	}
}

func TestSearch_CacheHitAndDistinctKeys(t *testing.T) {
	t.Parallel()

	s := newSearchServer(t, http.StatusOK, sampleResponse)
	client := newTestClient(s, false)
	ctx := context.Background()

	q := models.Query{Term: "night", Tags: []string{"lofi", "jazz"}}
	if _, err := client.Search(ctx, q); err != nil {
		t.Fatal(err)
	}

	// same value, different tag order and duplicates
	res, err := client.Search(ctx, models.Query{Term: "night", Tags: []string{"jazz", "lofi", "jazz"}})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Cached {
		t.Error("identical query was not served from cache")
	}
	if n := s.requests.Load(); n != 1 {
		t.Errorf("requests = %d after cache hit, want 1", n)
	}

	variants := []models.Query{
		{Term: "night", Tags: []string{"lofi"}},
		{Term: "night", Tags: []string{"lofi", "jazz"}, Page: 1},
		{Term: "night", Tags: []string{"lofi", "jazz"}, Sort: SortLikes},
		{Term: "night", Tags: []string{"lofi", "jazz"}, MaxAgeInHours: 24},
		{Term: "night", Tags: []string{"lofi", "jazz"}, UserID: "u1"},
	}
	for _, v := range variants {
		if _, err := client.Search(ctx, v); err != nil {
			t.Fatal(err)
		}
	}
	if n := s.requests.Load(); n != int32(1+len(variants)) {
		t.Errorf("requests = %d, want %d", n, 1+len(variants))
	}

	client.InvalidateCache()
	if _, err := client.Search(ctx, q); err != nil {
		t.Fatal(err)
	}
	if n := s.requests.Load(); n != int32(2+len(variants)) {
		t.Errorf("invalidated cache still answered: requests = %d", n)
	}
}

func TestSearch_CachedTracksAreCopies(t *testing.T) {
	t.Parallel()

	s := newSearchServer(t, http.StatusOK, sampleResponse)
	client := newTestClient(s, false)

	res, err := client.Search(context.Background(), models.Query{})
	if err != nil {
		t.Fatal(err)
	}
	res.Tracks[0].Tags[0] = "mutated"

	again, err := client.Search(context.Background(), models.Query{})
	if err != nil {
		t.Fatal(err)
	}
	if again.Tracks[0].Tags[0] == "mutated" {
		t.Error("caller mutation leaked into the cache")
	}
}

func TestSearch_TransportFailure(t *testing.T) {
	t.Parallel()

	s := newSearchServer(t, http.StatusInternalServerError, `oops`)

	t.Run("error without placeholders", func(t *testing.T) {
		client := newTestClient(s, false)
		_, err := client.Search(context.Background(), models.Query{Term: "x"})
		var terr *transport.TransportError
		if !errors.As(err, &terr) {
			t.Fatalf("Search() error = %v, want TransportError", err)
		}
	})

	t.Run("placeholders are flagged and not cached", func(t *testing.T) {
		client := newTestClient(s, true)
		res, err := client.Search(context.Background(), models.Query{Term: "x", PageSize: 2})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if !res.Placeholder || len(res.Tracks) != 2 {
			t.Fatalf("result = %+v, want 2 placeholder tracks", res)
		}
		for _, tr := range res.Tracks {
			if !tr.Placeholder {
				t.Errorf("track %s not marked placeholder", tr.ID)
			}
		}
		if client.CacheSize() != 0 {
			t.Error("placeholder result was cached")
		}
	})
}

func TestSearch_ParseFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>blocked</html>`},
		{"missing data", `{"items":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSearchServer(t, http.StatusOK, tt.body)
			client := newTestClient(s, true)

			_, err := client.Search(context.Background(), models.Query{})
			if !errors.Is(err, ErrParse) {
				t.Fatalf("Search() error = %v, want ErrParse", err)
			}
			if n := s.requests.Load(); n != 1 {
				t.Errorf("requests = %d, parse failures must not be retried", n)
			}
		})
	}
}

func TestSearchByTags(t *testing.T) {
	t.Parallel()

	s := newSearchServer(t, http.StatusOK, sampleResponse)
	client := newTestClient(s, false)

	tracks, err := client.SearchByTags(context.Background(), []string{"jazz"}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(tracks) == 0 {
		t.Fatal("no tracks")
	}
	body := s.lastBody(t)
	if body.PageSize != 1 || len(body.SearchQuery.ContainsTags) != 1 {
		t.Errorf("request = %+v", body)
	}
}
