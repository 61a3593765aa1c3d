package httpd

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"cryogon/rizumu-udio/models"
)

// parseQuery reads /search parameters. Unset numeric values stay zero so the client applies defaults.
func parseQuery(r *http.Request) (models.Query, error) {
	v := r.URL.Query()
	q := models.Query{
		Term:   v.Get("term"),
		Sort:   v.Get("sort"),
		UserID: v.Get("user"),
	}
	if tags := v.Get("tags"); tags != "" {
		q.Tags = strings.Split(tags, ",")
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"max_age", &q.MaxAgeInHours},
		{"page", &q.Page},
		{"page_size", &q.PageSize},
	}
	for _, p := range ints {
		raw := v.Get(p.key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return models.Query{}, &paramError{key: p.key, value: raw}
		}
		*p.dst = n
	}
	return q, nil
}

type paramError struct {
	key, value string
}

func (e *paramError) Error() string {
	return "invalid " + e.key + ": " + strconv.Quote(e.value)
}

func (s *Server) handleSearch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		res, err := s.Search.Search(r.Context(), q)
		if err != nil {
			respondWithError(w, err)
			return
		}

		if s.Store != nil && !res.Placeholder && !res.Cached {
			if _, err := s.Store.SaveTracks(r.Context(), res.Tracks); err != nil {
				log.Printf("[http] Saving search results: %v", err)
			}
		}

		respondWithJSON(w, http.StatusOK, res)
	}
}
