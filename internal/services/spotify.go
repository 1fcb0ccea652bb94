// Spotify Web API catalog implementation
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/desertthunder/tamer/internal/models"
	"github.com/desertthunder/tamer/internal/shared"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	playlistPageSize = 100
	unknownArtist    = "Unknown Artist"
)

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyTrack represents a Spotify track object, full or simplified.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	DurationMS int             `json:"duration_ms"`
	IsLocal    bool            `json:"is_local"`
}

// SpotifyPlaylistTrack represents a track within a playlist context. Track is null for removed items.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPlaylistPage is one page of /playlists/{id}/tracks.
type SpotifyPlaylistPage struct {
	Items []SpotifyPlaylistTrack `json:"items"`
	Total int                    `json:"total"`
	Next  *string                `json:"next"`
}

// SpotifyAlbumPage is one page of /albums/{id}/tracks.
type SpotifyAlbumPage struct {
	Items []SpotifyTrack `json:"items"`
	Total int          `json:"total"`
	Next  *string      `json:"next"`
}

// SpotifyPlaylist represents the playlist fields the catalog needs.
type SpotifyPlaylist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents an album with its first page of tracks.
type SpotifyAlbum struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Artists []SpotifyArtist  `json:"artists"`
	Tracks  SpotifyAlbumPage `json:"tracks"`
}

// StatusError is returned for non-2xx Spotify responses.
type StatusError struct {
	StatusCode int
	Endpoint   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("spotify API error: status %d", e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return shared.ErrAPIRequest
}

// SpotifyOpts configures a [SpotifyService]. HTTPClient, BaseURL and TokenURL are for tests.
type SpotifyOpts struct {
	ClientID     string
	ClientSecret string
	RateLimit    float64
	HTTPClient   *http.Client
	BaseURL      string
	TokenURL     string
}

// SpotifyService reads public catalog data using the client-credentials grant.
//
// It implements tasks.Catalog.
type SpotifyService struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// NewSpotifyService creates a catalog client. Tokens are fetched lazily and refreshed by [oauth2].
func NewSpotifyService(ctx context.Context, opts SpotifyOpts) (*SpotifyService, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = spotifyTokenURL
	}
	if opts.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.HTTPClient)
	}

	config := &clientcredentials.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     opts.TokenURL,
	}

	s := &SpotifyService{
		httpClient: config.Client(ctx),
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
	}
	if opts.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return s, nil
}

// Name returns the service name.
func (s *SpotifyService) Name() string {
	return "Spotify"
}

// doRequest performs an authenticated GET. endpoint is either a path below the base URL or an absolute "next" URL.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	apiURL := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		apiURL = s.baseURL + endpoint
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Endpoint: endpoint}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// Track returns the title and first artist of a track.
func (s *SpotifyService) Track(ctx context.Context, id string) (models.TrackRef, error) {
	var track SpotifyTrack
	if err := s.doRequest(ctx, "/tracks/"+url.PathEscape(id), &track); err != nil {
		return models.TrackRef{}, notFound(err, shared.ErrTrackNotFound)
	}
	return toTrackRef(track, 0), nil
}

// PlaylistTracks returns the playlist name and every track, following pagination.
//
// Removed and local-only items are skipped.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, id string) (string, []models.TrackRef, error) {
	var playlist SpotifyPlaylist
	escaped := url.PathEscape(id)
	if err := s.doRequest(ctx, "/playlists/"+escaped+"?fields=id,name", &playlist); err != nil {
		return "", nil, notFound(err, shared.ErrPlaylistNotFound)
	}

	var tracks []models.TrackRef
	next := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=0", escaped, playlistPageSize)
	for next != "" {
		var page SpotifyPlaylistPage
		if err := s.doRequest(ctx, next, &page); err != nil {
			return "", nil, err
		}
		for _, item := range page.Items {
			if item.Track == nil || item.Track.IsLocal || item.Track.Name == "" {
				continue
			}
			tracks = append(tracks, toTrackRef(*item.Track, len(tracks)+1))
		}
		next = nextPage(page.Next)
	}
	return playlist.Name, tracks, nil
}

// AlbumTracks returns the album name and every track in disc order, following pagination.
func (s *SpotifyService) AlbumTracks(ctx context.Context, id string) (string, []models.TrackRef, error) {
	var album SpotifyAlbum
	if err := s.doRequest(ctx, "/albums/"+url.PathEscape(id), &album); err != nil {
		return "", nil, notFound(err, shared.ErrPlaylistNotFound)
	}

	var tracks []models.TrackRef
	page := album.Tracks
	for {
		for _, item := range page.Items {
			tr := toTrackRef(item, len(tracks)+1)
			if len(item.Artists) == 0 && len(album.Artists) > 0 {
				tr.Artist = album.Artists[0].Name
			}
			tracks = append(tracks, tr)
		}

		next := nextPage(page.Next)
		if next == "" {
			break
		}
		page = SpotifyAlbumPage{}
		if err := s.doRequest(ctx, next, &page); err != nil {
			return "", nil, err
		}
	}
	return album.Name, tracks, nil
}

func toTrackRef(t SpotifyTrack, position int) models.TrackRef {
	artist := unknownArtist
	if len(t.Artists) > 0 && t.Artists[0].Name != "" {
		artist = t.Artists[0].Name
	}
	return models.TrackRef{Title: t.Name, Artist: artist, Position: position}
}

func nextPage(next *string) string {
	if next == nil {
		return ""
	}
	return *next
}

func notFound(err error, sentinel error) error {
	var se *StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return err
}
