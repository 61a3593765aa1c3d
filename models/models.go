package models

import (
	"strings"
	"time"
)

// Track is a playable song returned by the search API.
type Track struct {
	ID          string        `json:"id"`
	Artist      string        `json:"artist"`
	Title       string        `json:"title"`
	URL         string        `json:"url"`
	Tags        []string      `json:"tags"`
	ImageURL    string        `json:"image_url,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	Lyrics      string        `json:"lyrics,omitempty"`
	PublishedAt time.Time     `json:"published_at"`
	Likes       int64         `json:"likes"`
	Plays       int64         `json:"plays"`

	// Placeholder marks the fixed demo tracks served when the API is unreachable.
	Placeholder bool `json:"placeholder,omitempty"`

	// FilePath is set once the track has been downloaded.
	FilePath string `json:"file_path,omitempty"`
}

// HasTag reports whether the track carries tag (case-insensitive).
func (t Track) HasTag(tag string) bool {
	for _, tt := range t.Tags {
		if strings.EqualFold(tt, tag) {
			return true
		}
	}
	return false
}

// Query describes one search call. Zero values mean "use the default".
type Query struct {
	Term          string   `json:"term"`
	Tags          []string `json:"tags"`
	Sort          string   `json:"sort"`
	MaxAgeInHours int      `json:"max_age_in_hours"`
	UserID        string   `json:"user_id,omitempty"`
	Page          int      `json:"page"`
	PageSize      int      `json:"page_size"`
}

// SearchResult wraps the tracks of one search together with where they came from.
type SearchResult struct {
	Tracks      []Track `json:"tracks"`
	Placeholder bool    `json:"placeholder"`
	Cached      bool    `json:"cached"`
}

// PlayLog records one play of a track.
type PlayLog struct {
	ID       int64     `json:"id"`
	TrackID  string    `json:"track_id"`
	PlayedAt time.Time `json:"played_at"`
}
