package store

import (
	"context"
	"time"

	"cryogon/rizumu-udio/models"
)

// RecordPlayback stores t and adds a history row for it. Placeholders return ErrPlaceholder.
func (s *Store) RecordPlayback(ctx context.Context, t models.Track) error {
	if err := s.SaveTrack(ctx, &t); err != nil {
		return err
	}
	return s.RecordPlay(ctx, t.ID)
}

func (s *Store) RecordPlay(ctx context.Context, trackID string) error {
	_, err := s.db.ExecContext(ctx, "INSERT INTO play_history (track_id, played_at) VALUES (?, ?)", trackID, time.Now().UTC())
	return err
}

// RecentPlays returns the latest plays, newest first.
func (s *Store) RecentPlays(ctx context.Context, limit int) ([]models.PlayLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, "SELECT id, track_id, played_at FROM play_history ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.PlayLog
	for rows.Next() {
		var l models.PlayLog
		if err := rows.Scan(&l.ID, &l.TrackID, &l.PlayedAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// MostPlayed returns stored tracks ordered by local play count.
func (s *Store) MostPlayed(ctx context.Context, limit int) ([]*models.Track, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
	SELECT ` + trackColumns + ` FROM tracks t
	JOIN (SELECT track_id, COUNT(*) AS n FROM play_history GROUP BY track_id) h ON h.track_id = t.id
	ORDER BY h.n DESC, t.id
	LIMIT ?`
	return s.queryTracks(ctx, query, limit)
}
