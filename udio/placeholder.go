package udio

import (
	"time"

	"cryogon/rizumu-udio/models"
)

// placeholderTracks are served instead of an error when placeholders are enabled.
var placeholderTracks = []models.Track{
	{
		ID:       "placeholder-1",
		Artist:   "SoundHelix",
		Title:    "Song 1",
		URL:      "https://www.soundhelix.com/examples/mp3/SoundHelix-Song-1.mp3",
		Tags:     []string{"electronic", "demo"},
		Duration: 6*time.Minute + 12*time.Second,
	},
	{
		ID:       "placeholder-2",
		Artist:   "SoundHelix",
		Title:    "Song 2",
		URL:      "https://www.soundhelix.com/examples/mp3/SoundHelix-Song-2.mp3",
		Tags:     []string{"rock", "demo"},
		Duration: 7*time.Minute + 5*time.Second,
	},
	{
		ID:       "placeholder-3",
		Artist:   "SoundHelix",
		Title:    "Song 3",
		URL:      "https://www.soundhelix.com/examples/mp3/SoundHelix-Song-3.mp3",
		Tags:     []string{"jazz", "demo"},
		Duration: 5*time.Minute + 44*time.Second,
	},
}

func placeholders(limit int) []models.Track {
	tracks := cloneTracks(placeholderTracks)
	for i := range tracks {
		tracks[i].Placeholder = true
	}
	if limit > 0 && limit < len(tracks) {
		tracks = tracks[:limit]
	}
	return tracks
}
