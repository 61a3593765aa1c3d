package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"cryogon/rizumu-udio/models"

	"github.com/samber/lo"
)

const trackColumns = `t.id, t.artist, t.title, t.url, t.image_url, t.lyrics, t.duration_ms, t.published_at, t.likes, t.plays, t.file_path`

func normalizeTags(tags []string) []string {
	return lo.Uniq(lo.FilterMap(tags, func(t string, _ int) (string, bool) {
		t = strings.ToLower(strings.TrimSpace(t))
		return t, t != ""
	}))
}

// SaveTrack upserts a track and replaces its tag links. The file path of an existing row is kept.
func (s *Store) SaveTrack(ctx context.Context, t *models.Track) error {
	if t.Placeholder {
		return ErrPlaceholder
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := saveTrackTx(ctx, tx, t); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// SaveTracks stores every non-placeholder track in one transaction.
func (s *Store) SaveTracks(ctx context.Context, tracks []models.Track) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	saved := 0
	for i := range tracks {
		if tracks[i].Placeholder {
			continue
		}
		if err := saveTrackTx(ctx, tx, &tracks[i]); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("saving track %s: %w", tracks[i].ID, err)
		}
		saved++
	}
	return saved, tx.Commit()
}

func saveTrackTx(ctx context.Context, tx *sql.Tx, t *models.Track) error {
	query := `
	INSERT INTO tracks (id, artist, title, url, image_url, lyrics, duration_ms, published_at, likes, plays)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		artist = excluded.artist,
		title = excluded.title,
		url = excluded.url,
		image_url = excluded.image_url,
		lyrics = excluded.lyrics,
		duration_ms = excluded.duration_ms,
		published_at = excluded.published_at,
		likes = excluded.likes,
		plays = excluded.plays,
		updated_at = CURRENT_TIMESTAMP;
	`
	var published int64
	if !t.PublishedAt.IsZero() {
		published = t.PublishedAt.Unix()
	}
	_, err := tx.ExecContext(ctx, query,
		t.ID, t.Artist, t.Title, t.URL, t.ImageURL, t.Lyrics,
		t.Duration.Milliseconds(), published, t.Likes, t.Plays,
	)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM track_tags WHERE track_id = ?", t.ID); err != nil {
		return err
	}
	for _, tag := range normalizeTags(t.Tags) {
		if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO tags (name) VALUES (?)", tag); err != nil {
			return err
		}
		link := `INSERT OR IGNORE INTO track_tags (track_id, tag_id) SELECT ?, id FROM tags WHERE name = ?`
		if _, err := tx.ExecContext(ctx, link, t.ID, tag); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrack(row rowScanner) (*models.Track, error) {
	var t models.Track
	var imageURL, lyrics, filePath sql.NullString
	var durationMs, published int64
	err := row.Scan(&t.ID, &t.Artist, &t.Title, &t.URL, &imageURL, &lyrics,
		&durationMs, &published, &t.Likes, &t.Plays, &filePath)
	if err != nil {
		return nil, err
	}
	t.ImageURL = imageURL.String
	t.Lyrics = lyrics.String
	t.FilePath = filePath.String
	t.Duration = time.Duration(durationMs) * time.Millisecond
	if published > 0 {
		t.PublishedAt = time.Unix(published, 0).UTC()
	}
	return &t, nil
}

func (s *Store) GetTrack(ctx context.Context, id string) (*models.Track, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+trackColumns+" FROM tracks t WHERE t.id = ?", id)
	t, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("track %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadTags(ctx, []*models.Track{t}); err != nil {
		return nil, err
	}
	return t, nil
}

// TracksByTag lists stored tracks carrying tag, newest first.
func (s *Store) TracksByTag(ctx context.Context, tag string, limit int) ([]*models.Track, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
	SELECT ` + trackColumns + ` FROM tracks t
	JOIN track_tags tt ON tt.track_id = t.id
	JOIN tags g ON g.id = tt.tag_id
	WHERE g.name = ?
	ORDER BY t.published_at DESC, t.id
	LIMIT ?`
	return s.queryTracks(ctx, query, strings.ToLower(strings.TrimSpace(tag)), limit)
}

func (s *Store) queryTracks(ctx context.Context, query string, args ...any) ([]*models.Track, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []*models.Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.loadTags(ctx, tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}

func (s *Store) loadTags(ctx context.Context, tracks []*models.Track) error {
	if len(tracks) == 0 {
		return nil
	}
	byID := lo.KeyBy(tracks, func(t *models.Track) string { return t.ID })
	ids := lo.Map(tracks, func(t *models.Track, _ int) any { return t.ID })

	query := `
	SELECT tt.track_id, g.name FROM track_tags tt
	JOIN tags g ON g.id = tt.tag_id
	WHERE tt.track_id IN (` + strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",") + `)
	ORDER BY g.name`
	rows, err := s.db.QueryContext(ctx, query, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for _, t := range tracks {
		t.Tags = []string{}
	}
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return err
		}
		if t, ok := byID[id]; ok {
			t.Tags = append(t.Tags, name)
		}
	}
	return rows.Err()
}

func (s *Store) UpdateTrackPath(ctx context.Context, id, path string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE tracks SET file_path = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", path, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("track %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteTrack(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	for _, q := range []string{
		"DELETE FROM playlist_tracks WHERE track_id = ?",
		"DELETE FROM play_history WHERE track_id = ?",
		"DELETE FROM track_tags WHERE track_id = ?",
		"DELETE FROM tracks WHERE id = ?",
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// ClearMissingFiles forgets file paths that no longer exist on disk.
func (s *Store) ClearMissingFiles(ctx context.Context, exists func(path string) bool) error {
	rows, err := s.db.QueryContext(ctx, "SELECT id, file_path FROM tracks WHERE file_path IS NOT NULL AND file_path != ''")
	if err != nil {
		return err
	}
	var missing []string
	for rows.Next() {
		var id, path string
		if err := rows.Scan(&id, &path); err != nil {
			rows.Close()
			return err
		}
		if !exists(path) {
			missing = append(missing, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range missing {
		if _, err := s.db.ExecContext(ctx, "UPDATE tracks SET file_path = NULL WHERE id = ?", id); err != nil {
			return err
		}
	}
	if len(missing) > 0 {
		log.Printf("[store] Cleared %d missing file paths", len(missing))
	}
	return nil
}
