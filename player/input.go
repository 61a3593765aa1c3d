package player

import (
	"path"
	"strings"

	"cryogon/rizumu-udio/models"
	"cryogon/rizumu-udio/utils"
)

// Input is what Play accepts: exactly one of URL, Track or Selector is set.
type Input struct {
	URL      string
	Track    *models.Track
	Selector string
}

// ParseInput classifies a user string as a direct URL or a keyword/tag selector.
func ParseInput(s string) Input {
	s = strings.TrimSpace(s)
	if utils.IsDirectURL(s) {
		return Input{URL: s}
	}
	return Input{Selector: s}
}

// selectorQuery maps "tag:jazz" and "#jazz" onto a tag search and everything else onto a term search.
func selectorQuery(sel string) models.Query {
	sel = strings.TrimSpace(sel)
	switch {
	case strings.HasPrefix(sel, "tag:"):
		return models.Query{Tags: []string{strings.TrimSpace(strings.TrimPrefix(sel, "tag:"))}, PageSize: 1}
	case strings.HasPrefix(sel, "#"):
		return models.Query{Tags: []string{strings.TrimPrefix(sel, "#")}, PageSize: 1}
	default:
		return models.Query{Term: sel, PageSize: 1}
	}
}

func trackFromURL(u string) models.Track {
	title := path.Base(strings.SplitN(u, "?", 2)[0])
	return models.Track{ID: u, URL: u, Title: title, Artist: "Unknown", Tags: []string{}}
}
