package player

import (
	"context"
	"fmt"

	"cryogon/rizumu-udio/models"
)

// SearchByGenre returns up to limit tracks tagged with genre.
func (c *Controller) SearchByGenre(ctx context.Context, genre string, limit int) ([]models.Track, error) {
	if c.searcher == nil {
		return nil, ErrNoSearcher
	}
	res, err := c.searcher.Search(ctx, models.Query{Tags: []string{genre}, PageSize: limit})
	if err != nil {
		return nil, err
	}
	return res.Tracks, nil
}

// PlayRandomByGenre plays a uniformly chosen track tagged with genre.
func (c *Controller) PlayRandomByGenre(ctx context.Context, genre string, opts LoadOptions) (models.Track, error) {
	tracks, err := c.SearchByGenre(ctx, genre, 0)
	if err != nil {
		return models.Track{}, err
	}
	if len(tracks) == 0 {
		return models.Track{}, fmt.Errorf("%w for genre %q", ErrNoTracksFound, genre)
	}
	pick := tracks[c.intN(len(tracks))]
	return c.Play(ctx, Input{Track: &pick}, opts)
}
