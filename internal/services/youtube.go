// YouTube video search
//
// Two backends: a scraper over the public results page that needs no credentials,
// and the YouTube Data API v3 when an API key is configured.
package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ppalone/ytsearch"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/desertthunder/tamer/internal/models"
	"github.com/desertthunder/tamer/internal/shared"
)

const dataAPIMaxResults int64 = 5

// YouTubeService searches generic YouTube videos by scraping the results page.
//
// It implements tasks.SecondarySearch.
type YouTubeService struct {
	client *ytsearch.Client
}

// NewYouTubeService creates a scraper-backed search. A nil httpClient uses the default client.
func NewYouTubeService(httpClient *http.Client) *YouTubeService {
	return &YouTubeService{client: ytsearch.NewClient(httpClient)}
}

func (s *YouTubeService) Name() string {
	return "YouTube"
}

// SearchVideos returns video results in ranking order.
func (s *YouTubeService) SearchVideos(ctx context.Context, query string) ([]models.VideoResult, error) {
	r, err := s.client.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: youtube search: %w", shared.ErrServiceUnavailable, err)
	}

	results := make([]models.VideoResult, 0, len(r.Results))
	for _, v := range r.Results {
		if v.VideoID == "" {
			continue
		}
		results = append(results, models.VideoResult{SourceID: v.VideoID, Title: v.Title})
	}
	return results, nil
}

// YouTubeDataService searches videos through the official Data API.
//
// It implements tasks.SecondarySearch.
type YouTubeDataService struct {
	svc *youtube.Service
}

// NewYouTubeDataService creates a Data API client. Extra options are appended after the API key, so tests can override the endpoint.
func NewYouTubeDataService(ctx context.Context, apiKey string, opts ...option.ClientOption) (*YouTubeDataService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: youtube api_key is required", shared.ErrMissingCredentials)
	}

	svc, err := youtube.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube client: %w", err)
	}
	return &YouTubeDataService{svc: svc}, nil
}

func (s *YouTubeDataService) Name() string {
	return "YouTube Data API"
}

// SearchVideos runs a search.list call restricted to videos.
func (s *YouTubeDataService) SearchVideos(ctx context.Context, query string) ([]models.VideoResult, error) {
	resp, err := s.svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		MaxResults(dataAPIMaxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("%w: youtube data api: %w", shared.ErrAPIRequest, err)
	}

	results := make([]models.VideoResult, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		title := ""
		if item.Snippet != nil {
			title = item.Snippet.Title
		}
		results = append(results, models.VideoResult{SourceID: item.Id.VideoId, Title: title})
	}
	return results, nil
}
