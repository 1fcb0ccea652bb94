// YouTube Music song search
//
// Backed by the unofficial InnerTube client in [github.com/raitonoberu/ytmusic].
package services

import (
	"context"
	"fmt"

	"github.com/raitonoberu/ytmusic"

	"github.com/desertthunder/tamer/internal/models"
	"github.com/desertthunder/tamer/internal/shared"
)

// SongSearchFunc runs one song-filtered query.
type SongSearchFunc func(query string) ([]models.Candidate, error)

// YTMusicService searches YouTube Music restricted to songs.
//
// It implements tasks.PrimarySearch.
type YTMusicService struct {
	search SongSearchFunc
}

// NewYTMusicService uses the live InnerTube client when search is nil.
func NewYTMusicService(search SongSearchFunc) *YTMusicService {
	if search == nil {
		search = searchSongs
	}
	return &YTMusicService{search: search}
}

func (s *YTMusicService) Name() string {
	return "YouTube Music"
}

// SearchSongs returns song results in ranking order. Results without a video id are dropped.
//
// The underlying client takes no context so the call runs in a goroutine and is abandoned when ctx ends.
func (s *YTMusicService) SearchSongs(ctx context.Context, query string) ([]models.Candidate, error) {
	type result struct {
		candidates []models.Candidate
		err        error
	}

	done := make(chan result, 1)
	go func() {
		candidates, err := s.search(query)
		done <- result{candidates, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("%w: youtube music search: %w", shared.ErrServiceUnavailable, r.err)
		}
		out := r.candidates[:0:0]
		for _, c := range r.candidates {
			if c.SourceID != "" {
				out = append(out, c)
			}
		}
		return out, nil
	}
}

func searchSongs(query string) ([]models.Candidate, error) {
	r, err := ytmusic.TrackSearch(query).Next()
	if err != nil {
		return nil, err
	}

	candidates := make([]models.Candidate, 0, len(r.Tracks))
	for _, v := range r.Tracks {
		artists := make([]string, 0, len(v.Artists))
		for _, a := range v.Artists {
			artists = append(artists, a.Name)
		}
		candidates = append(candidates, models.Candidate{SourceID: v.VideoID, Title: v.Title, Artists: artists})
	}
	return candidates, nil
}
