package player

import "errors"

var (
	ErrNoMatch          = errors.New("no track matches the selector")
	ErrNoTracksFound    = errors.New("no tracks found")
	ErrPlayback         = errors.New("playback failed")
	ErrNotLoaded        = errors.New("no track loaded")
	ErrLoadSuperseded   = errors.New("load superseded by a newer load")
	ErrInvalidSection   = errors.New("invalid loop section")
	ErrNoSearcher       = errors.New("player has no searcher")
	ErrAudioUnavailable = errors.New("audio output is not available in this build")
)
