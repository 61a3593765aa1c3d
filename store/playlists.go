package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cryogon/rizumu-udio/models"
)

// Playlist is a named, ordered list of stored tracks.
type Playlist struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	CreatedAt time.Time       `json:"created_at"`
	Tracks    []*models.Track `json:"tracks,omitempty"`
}

// SavePlaylist creates the playlist or returns the id of the existing one with that name.
func (s *Store) SavePlaylist(ctx context.Context, name string) (int64, error) {
	_, err := s.db.ExecContext(ctx, "INSERT OR IGNORE INTO playlists (name) VALUES (?)", name)
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.db.QueryRowContext(ctx, "SELECT id FROM playlists WHERE name = ?", name).Scan(&id)
	return id, err
}

// AddTrackToPlaylist appends a stored track to the end of the playlist.
func (s *Store) AddTrackToPlaylist(ctx context.Context, playlistID int64, trackID string) error {
	query := `
	INSERT OR IGNORE INTO playlist_tracks (playlist_id, track_id, sort_order)
	SELECT ?, ?, COALESCE(MAX(sort_order), -1) + 1 FROM playlist_tracks WHERE playlist_id = ?`
	_, err := s.db.ExecContext(ctx, query, playlistID, trackID, playlistID)
	return err
}

func (s *Store) GetPlaylist(ctx context.Context, id int64) (*Playlist, error) {
	var p Playlist
	err := s.db.QueryRowContext(ctx, "SELECT id, name, created_at FROM playlists WHERE id = ?", id).
		Scan(&p.ID, &p.Name, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("playlist %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	query := `
	SELECT ` + trackColumns + ` FROM tracks t
	JOIN playlist_tracks pt ON pt.track_id = t.id
	WHERE pt.playlist_id = ?
	ORDER BY pt.sort_order`
	p.Tracks, err = s.queryTracks(ctx, query, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
