package utils

import (
	"net/url"
	"strings"
)

const songPageBase = "https://www.udio.com/songs/"

// IsDirectURL reports whether s is an absolute http(s) URL rather than a keyword or tag selector.
func IsDirectURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// SongPageURL is the public page of a track.
func SongPageURL(trackID string) string {
	return songPageBase + url.PathEscape(trackID)
}

// SafeFilename replaces characters that are not allowed in file names.
func SafeFilename(name string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	name = strings.TrimSpace(r.Replace(name))
	if name == "" {
		return "untitled"
	}
	return name
}
