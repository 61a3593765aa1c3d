package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

// SaveToken stores the API token for provider.
func (s *Store) SaveToken(ctx context.Context, provider string, token *oauth2.Token) error {
	// Upsert: Insert or Update if it exists
	query := `
	INSERT INTO connections (provider, access_token, token_type, refresh_token, expiry)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(provider) DO UPDATE SET
		access_token = excluded.access_token,
		token_type = excluded.token_type,
		refresh_token = excluded.refresh_token,
		expiry = excluded.expiry,
		updated_at = CURRENT_TIMESTAMP;
	`

	var expiry any
	if !token.Expiry.IsZero() {
		expiry = token.Expiry.UTC()
	}
	_, err := s.db.ExecContext(ctx, query,
		provider,
		token.AccessToken,
		token.TokenType,
		token.RefreshToken,
		expiry,
	)

	return err
}

// Token retrieves the stored token for provider.
func (s *Store) Token(ctx context.Context, provider string) (*oauth2.Token, error) {
	query := `
    SELECT access_token, token_type, refresh_token, expiry
    FROM connections
    WHERE provider = ?`

	var token oauth2.Token
	var tokenType, refresh sql.NullString
	var expiry sql.NullTime
	err := s.db.QueryRowContext(ctx, query, provider).Scan(&token.AccessToken, &tokenType, &refresh, &expiry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("token for %s: %w", provider, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	token.TokenType = tokenType.String
	token.RefreshToken = refresh.String
	if expiry.Valid {
		token.Expiry = expiry.Time
	}
	return &token, nil
}
