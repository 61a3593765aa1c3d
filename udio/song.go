package udio

import (
	"cmp"
	"log"
	"slices"
	"strings"
	"time"

	"cryogon/rizumu-udio/models"

	"github.com/samber/lo"
)

type searchResponse struct {
	Data *[]rawSong `json:"data"`
}

type rawSong struct {
	ID          string   `json:"id"`
	Artist      string   `json:"artist"`
	Title       string   `json:"title"`
	SongPath    string   `json:"song_path"`
	Tags        []string `json:"tags"`
	ImagePath   string   `json:"image_path"`
	Duration    float64  `json:"duration"`
	Lyrics      string   `json:"lyrics"`
	PublishedAt string   `json:"published_at"`
	Likes       int64    `json:"likes"`
	Plays       int64    `json:"plays"`
}

func (r rawSong) toTrack() models.Track {
	t := models.Track{
		ID:       r.ID,
		Artist:   strings.TrimSpace(r.Artist),
		Title:    strings.TrimSpace(r.Title),
		URL:      r.SongPath,
		Tags:     lo.Uniq(lo.Compact(r.Tags)),
		ImageURL: r.ImagePath,
		Duration: time.Duration(r.Duration * float64(time.Second)),
		Lyrics:   r.Lyrics,
		Likes:    r.Likes,
		Plays:    r.Plays,
	}
	if t.Artist == "" {
		t.Artist = "Unknown"
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if r.PublishedAt != "" {
		if ts, err := time.Parse(time.RFC3339Nano, r.PublishedAt); err == nil {
			t.PublishedAt = ts
		}
	}
	return t
}

// mapSongs converts raw records, dropping the ones that cannot be played.
func mapSongs(raw []rawSong, sortKey string) []models.Track {
	tracks := lo.FilterMap(raw, func(r rawSong, _ int) (models.Track, bool) {
		if r.ID == "" || r.SongPath == "" {
			log.Printf("[Udio] Skipping record %q without id or song path", r.ID)
			return models.Track{}, false
		}
		return r.toTrack(), true
	})

	if sortKey == SortNewest {
		slices.SortStableFunc(tracks, func(a, b models.Track) int {
			return cmp.Compare(b.PublishedAt.UnixNano(), a.PublishedAt.UnixNano())
		})
	}
	return tracks
}

func cloneTracks(tracks []models.Track) []models.Track {
	return lo.Map(tracks, func(t models.Track, _ int) models.Track {
		t.Tags = slices.Clone(t.Tags)
		return t
	})
}
