package models

import (
	"fmt"
	"strings"
)

// TrackRef names a track by title and primary artist.
//
// Position is the 1-based index inside its playlist or album, zero for a single track.
type TrackRef struct {
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Position int    `json:"position,omitempty"`
}

// String renders the ref the way progress messages show it.
func (t TrackRef) String() string {
	return fmt.Sprintf("%s by %s", t.Title, t.Artist)
}

// Candidate is a search result that may correspond to a [TrackRef].
type Candidate struct {
	SourceID string   `json:"source_id"`
	Title    string   `json:"title"`
	Artists  []string `json:"artists"`
}

// ArtistLine joins all candidate artists with ", ".
func (c Candidate) ArtistLine() string {
	return strings.Join(c.Artists, ", ")
}

// VideoResult is a plain video hit from the fallback search.
type VideoResult struct {
	SourceID string `json:"source_id"`
	Title    string `json:"title"`
}

const watchURL = "https://www.youtube.com/watch?v="

// WatchURL turns a video id into the URL the fetch backend consumes.
func WatchURL(videoID string) string {
	return watchURL + videoID
}

// Tags are the metadata embedded into a produced file.
type Tags struct {
	Title  string
	Artist string
}

// OutputSpec tells the fetch backend where to write and at which quality.
type OutputSpec struct {
	Path    string
	Bitrate Bitrate
	Tags    Tags
}
