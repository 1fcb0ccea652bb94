// package services implements the external catalog and search clients.
package services

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tamer/internal/tasks"
)

// Service is implemented by every client in this package.
type Service interface {
	// Name returns the name of the service (e.g., "Spotify", "YouTube Music")
	Name() string
}

var (
	_ tasks.Catalog         = (*SpotifyService)(nil)
	_ tasks.PrimarySearch   = (*YTMusicService)(nil)
	_ tasks.SecondarySearch = (*YouTubeService)(nil)
	_ tasks.SecondarySearch = (*YouTubeDataService)(nil)

	_ Service = (*SpotifyService)(nil)
	_ Service = (*YTMusicService)(nil)
	_ Service = (*YouTubeService)(nil)
	_ Service = (*YouTubeDataService)(nil)
)

// NameOf returns the service name of v, or "custom" when v is not a [Service].
func NameOf(v any) string {
	if s, ok := v.(Service); ok {
		return s.Name()
	}
	return "custom"
}

// NewSecondarySearch prefers the Data API when apiKey is set and falls back to the scraper otherwise.
func NewSecondarySearch(ctx context.Context, apiKey string, logger *log.Logger) tasks.SecondarySearch {
	if apiKey != "" {
		svc, err := NewYouTubeDataService(ctx, apiKey)
		if err == nil {
			return svc
		}
		if logger != nil {
			logger.Warn("falling back to youtube scraper", "error", err)
		}
	}
	return NewYouTubeService(nil)
}
