package models

import (
	"fmt"
	"regexp"
	"strings"
)

// LinkKind identifies which catalog resource a link points at.
type LinkKind int

const (
	LinkUnknown LinkKind = iota
	LinkTrack
	LinkPlaylist
	LinkAlbum
)

func (k LinkKind) String() string {
	switch k {
	case LinkTrack:
		return "track"
	case LinkPlaylist:
		return "playlist"
	case LinkAlbum:
		return "album"
	default:
		return "unknown"
	}
}

// Link is a recognised catalog URL.
type Link struct {
	Kind LinkKind
	ID   string
	URL  string
}

var linkPattern = regexp.MustCompile(`^https://open\.spotify\.com/(?:intl-[a-z]{2}/)?(playlist|album|track)/([^?/#\s]+)`)

// ParseLink classifies raw as a track, playlist or album link.
//
// The identifier is the last path segment with any query string removed.
func ParseLink(raw string) (Link, error) {
	raw = strings.TrimSpace(raw)
	m := linkPattern.FindStringSubmatch(raw)
	if m == nil {
		return Link{}, fmt.Errorf("%q is not a catalog link", raw)
	}

	var kind LinkKind
	switch m[1] {
	case "track":
		kind = LinkTrack
	case "playlist":
		kind = LinkPlaylist
	case "album":
		kind = LinkAlbum
	}

	return Link{Kind: kind, ID: m[2], URL: raw}, nil
}

// IsCollection reports whether the link expands to more than one track.
func (l Link) IsCollection() bool {
	return l.Kind == LinkPlaylist || l.Kind == LinkAlbum
}
