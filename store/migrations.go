package store

import "log"

func (s *Store) migrate() error {
	query := `
    CREATE TABLE IF NOT EXISTS tracks (
        id TEXT PRIMARY KEY,            -- id on the search API
        artist TEXT NOT NULL,
        title TEXT NOT NULL,
        url TEXT NOT NULL,
        image_url TEXT,
        lyrics TEXT,
        duration_ms INTEGER DEFAULT 0,
        published_at INTEGER DEFAULT 0, -- unix seconds, 0 if unknown
        likes INTEGER DEFAULT 0,
        plays INTEGER DEFAULT 0,

        file_path TEXT,                 -- set once downloaded

        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    -- "Jazz" and "jazz" are the same tag
    CREATE TABLE IF NOT EXISTS tags (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        name TEXT UNIQUE NOT NULL
    );

    CREATE TABLE IF NOT EXISTS track_tags (
        track_id TEXT NOT NULL,
        tag_id INTEGER NOT NULL,
        PRIMARY KEY (track_id, tag_id),
        FOREIGN KEY(track_id) REFERENCES tracks(id) ON DELETE CASCADE,
        FOREIGN KEY(tag_id) REFERENCES tags(id)
    );

    CREATE TABLE IF NOT EXISTS playlists (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        name TEXT UNIQUE NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS playlist_tracks (
        playlist_id INTEGER NOT NULL,
        track_id TEXT NOT NULL,
        sort_order INTEGER DEFAULT 0,
        added_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        PRIMARY KEY (playlist_id, track_id),
        FOREIGN KEY(playlist_id) REFERENCES playlists(id) ON DELETE CASCADE,
        FOREIGN KEY(track_id) REFERENCES tracks(id) ON DELETE CASCADE
    );

    CREATE TABLE IF NOT EXISTS play_history (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        track_id TEXT NOT NULL,
        played_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY(track_id) REFERENCES tracks(id) ON DELETE CASCADE
    );

    -- API credentials, one row per provider
    CREATE TABLE IF NOT EXISTS connections (
        provider TEXT PRIMARY KEY,
        access_token TEXT NOT NULL,
        token_type TEXT,
        refresh_token TEXT,
        expiry DATETIME,
        updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );
    `

	_, err := s.db.Exec(query)
	if err != nil {
		log.Printf("ERROR: Database migration failed: %v", err)
		return err
	}

	return nil
}
