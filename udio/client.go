// Package udio is the search client for the song catalog.
package udio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"cryogon/rizumu-udio/config"
	"cryogon/rizumu-udio/models"
	"cryogon/rizumu-udio/transport"
)

var (
	// ErrParse is returned when the response does not have the expected shape. It is never retried.
	ErrParse       = transport.ErrParse
	ErrNoTransport = errors.New("udio client has no transport")
)

// Requester is the part of transport.Chain the client needs.
type Requester interface {
	JSON(ctx context.Context, req *transport.Request, v any) error
}

type Options struct {
	Transport Requester
	Endpoint  string
	PageSize  int
	// Placeholders substitutes a fixed demo set when the transport chain is exhausted.
	Placeholders bool
}

type Client struct {
	transport    Requester
	endpoint     string
	pageSize     int
	placeholders bool
	cache        *resultCache
}

func NewClient(opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = config.DefaultAPIBase + config.DefaultSearchPath
	}
	if opts.PageSize <= 0 {
		opts.PageSize = config.DefaultPageSize
	}
	return &Client{
		transport:    opts.Transport,
		endpoint:     opts.Endpoint,
		pageSize:     opts.PageSize,
		placeholders: opts.Placeholders,
		cache:        newResultCache(),
	}
}

// Search runs q against the search endpoint. An empty term and tag set mean unfiltered.
func (c *Client) Search(ctx context.Context, q models.Query) (*models.SearchResult, error) {
	if c.transport == nil {
		return nil, ErrNoTransport
	}
	q = normalize(q, c.pageSize)
	key := cacheKey(q)

	if tracks, ok := c.cache.get(key); ok {
		return &models.SearchResult{Tracks: tracks, Cached: true}, nil
	}

	body, err := json.Marshal(newSearchRequest(q))
	if err != nil {
		return nil, fmt.Errorf("encoding search request: %w", err)
	}
	req := &transport.Request{
		Method: http.MethodPost,
		URL:    c.endpoint,
		Body:   body,
		Header: http.Header{
			"Content-Type": []string{"application/json"},
			"Accept":       []string{"application/json"},
		},
	}

	var resp searchResponse
	if err := c.transport.JSON(ctx, req, &resp); err != nil {
		if c.placeholders && errors.Is(err, transport.ErrExhausted) {
			log.Printf("[Udio] WARN: search failed, serving placeholder tracks: %v", err)
			return &models.SearchResult{Tracks: placeholders(q.PageSize), Placeholder: true}, nil
		}
		return nil, fmt.Errorf("searching %q: %w", q.Term, err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("%w: response has no data field", ErrParse)
	}

	tracks := mapSongs(*resp.Data, q.Sort)
	c.cache.put(key, tracks)
	log.Printf("[Udio] Search term=%q tags=%v returned %d tracks", q.Term, q.Tags, len(tracks))

	return &models.SearchResult{Tracks: tracks}, nil
}

// SearchByTags returns up to limit tracks carrying all of tags.
func (c *Client) SearchByTags(ctx context.Context, tags []string, limit int) ([]models.Track, error) {
	res, err := c.Search(ctx, models.Query{Tags: tags, PageSize: limit})
	if err != nil {
		return nil, err
	}
	return res.Tracks, nil
}

// InvalidateCache drops every cached result.
func (c *Client) InvalidateCache() {
	c.cache.clear()
}

// CacheSize is the number of cached queries.
func (c *Client) CacheSize() int {
	return c.cache.len()
}
