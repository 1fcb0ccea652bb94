package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/tamer/internal/shared"
)

// newSpotifyServer serves a token endpoint at /token and hands every /v1 request to api.
func newSpotifyServer(t *testing.T, api http.HandlerFunc) (*httptest.Server, *int32) {
	t.Helper()
	var tokenCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tokenCalls, 1)
		if r.Method != http.MethodPost {
			t.Errorf("expected POST to token endpoint, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"test-token","token_type":"bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/v1/", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("expected bearer token, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		api(w, r)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &tokenCalls
}

func newTestSpotify(t *testing.T, server *httptest.Server) *SpotifyService {
	t.Helper()
	svc, err := NewSpotifyService(context.Background(), SpotifyOpts{
		ClientID:     "id",
		ClientSecret: "secret",
		HTTPClient:   server.Client(),
		BaseURL:      server.URL + "/v1",
		TokenURL:     server.URL + "/token",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return svc
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		tests := []struct {
			name string
			opts SpotifyOpts
		}{
			{name: "Missing Client ID", opts: SpotifyOpts{ClientSecret: "secret"}},
			{name: "Missing Client Secret", opts: SpotifyOpts{ClientID: "id"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := NewSpotifyService(context.Background(), tt.opts)
				if !errors.Is(err, shared.ErrMissingCredentials) {
					t.Errorf("expected ErrMissingCredentials, got %v", err)
				}
			})
		}

		t.Run("With Valid Credentials", func(t *testing.T) {
			svc, err := NewSpotifyService(context.Background(), SpotifyOpts{ClientID: "id", ClientSecret: "secret"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if svc.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", svc.Name())
			}
			if svc.baseURL != spotifyBaseURL {
				t.Errorf("expected default base URL, got %s", svc.baseURL)
			}
		})
	})

	t.Run("Track", func(t *testing.T) {
		t.Run("uses first artist", func(t *testing.T) {
			server, tokens := newSpotifyServer(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/tracks/abc" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				fmt.Fprint(w, `{"id":"abc","name":"Yesterday","artists":[{"name":"The Beatles"},{"name":"Other"}]}`)
			})
			svc := newTestSpotify(t, server)

			for range 2 {
				track, err := svc.Track(context.Background(), "abc")
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if track.Title != "Yesterday" || track.Artist != "The Beatles" {
					t.Errorf("unexpected track %+v", track)
				}
			}
			if got := atomic.LoadInt32(tokens); got != 1 {
				t.Errorf("expected token to be fetched once, got %d", got)
			}
		})

		t.Run("falls back to unknown artist", func(t *testing.T) {
			server, _ := newSpotifyServer(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"id":"abc","name":"Mystery","artists":[]}`)
			})
			track, err := newTestSpotify(t, server).Track(context.Background(), "abc")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if track.Artist != "Unknown Artist" {
				t.Errorf("expected 'Unknown Artist', got %q", track.Artist)
			}
		})

		t.Run("maps 404 to ErrTrackNotFound", func(t *testing.T) {
			server, _ := newSpotifyServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			})
			_, err := newTestSpotify(t, server).Track(context.Background(), "missing")
			if !errors.Is(err, shared.ErrTrackNotFound) {
				t.Errorf("expected ErrTrackNotFound, got %v", err)
			}
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest in chain, got %v", err)
			}
		})

		t.Run("other statuses are API errors", func(t *testing.T) {
			server, _ := newSpotifyServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			})
			_, err := newTestSpotify(t, server).Track(context.Background(), "abc")
			var se *StatusError
			if !errors.As(err, &se) || se.StatusCode != http.StatusInternalServerError {
				t.Fatalf("expected StatusError 500, got %v", err)
			}
			if err.Error() != "spotify API error: status 500" {
				t.Errorf("unexpected message %q", err.Error())
			}
		})

		t.Run("invalid JSON", func(t *testing.T) {
			server, _ := newSpotifyServer(t, func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{not json`)
			})
			if _, err := newTestSpotify(t, server).Track(context.Background(), "abc"); err == nil {
				t.Error("expected decode error")
			}
		})
	})

	t.Run("PlaylistTracks", func(t *testing.T) {
		var serverURL string
		server, _ := newSpotifyServer(t, func(w http.ResponseWriter, r *http.Request) {
			switch {
			case r.URL.Path == "/v1/playlists/p1":
				fmt.Fprint(w, `{"id":"p1","name":"Road Trip"}`)
			case r.URL.Path == "/v1/playlists/p1/tracks" && r.URL.Query().Get("offset") == "0":
				fmt.Fprintf(w, `{"total":4,"next":"%s/v1/playlists/p1/tracks?offset=100&limit=100","items":[
					{"track":{"name":"One","artists":[{"name":"A"}]}},
					{"track":null},
					{"track":{"name":"Local","is_local":true,"artists":[{"name":"L"}]}}
				]}`, serverURL)
			case r.URL.Path == "/v1/playlists/p1/tracks" && r.URL.Query().Get("offset") == "100":
				fmt.Fprint(w, `{"total":4,"next":null,"items":[{"track":{"name":"Two","artists":[{"name":"B"}]}}]}`)
			default:
				t.Errorf("unexpected request %s", r.URL.String())
				w.WriteHeader(http.StatusNotFound)
			}
		})
		serverURL = server.URL

		name, tracks, err := newTestSpotify(t, server).PlaylistTracks(context.Background(), "p1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if name != "Road Trip" {
			t.Errorf("expected name 'Road Trip', got %q", name)
		}
		if len(tracks) != 2 {
			t.Fatalf("expected 2 tracks, got %d", len(tracks))
		}
		if tracks[0].Title != "One" || tracks[0].Position != 1 {
			t.Errorf("unexpected first track %+v", tracks[0])
		}
		if tracks[1].Title != "Two" || tracks[1].Artist != "B" || tracks[1].Position != 2 {
			t.Errorf("unexpected second track %+v", tracks[1])
		}

		t.Run("not found", func(t *testing.T) {
			server, _ := newSpotifyServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			})
			_, _, err := newTestSpotify(t, server).PlaylistTracks(context.Background(), "nope")
			if !errors.Is(err, shared.ErrPlaylistNotFound) {
				t.Errorf("expected ErrPlaylistNotFound, got %v", err)
			}
		})
	})

	t.Run("AlbumTracks", func(t *testing.T) {
		var serverURL string
		server, _ := newSpotifyServer(t, func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/v1/albums/al1":
				fmt.Fprintf(w, `{"id":"al1","name":"Abbey Road","artists":[{"name":"The Beatles"}],
					"tracks":{"total":2,"next":"%s/v1/albums/al1/tracks?offset=50","items":[
						{"name":"Come Together","artists":[{"name":"The Beatles"}]}
					]}}`, serverURL)
			case "/v1/albums/al1/tracks":
				fmt.Fprint(w, `{"total":2,"next":null,"items":[{"name":"Something","artists":[]}]}`)
			default:
				t.Errorf("unexpected request %s", r.URL.String())
			}
		})
		serverURL = server.URL

		name, tracks, err := newTestSpotify(t, server).AlbumTracks(context.Background(), "al1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if name != "Abbey Road" || len(tracks) != 2 {
			t.Fatalf("unexpected album %q with %d tracks", name, len(tracks))
		}
		if tracks[1].Title != "Something" || tracks[1].Artist != "The Beatles" || tracks[1].Position != 2 {
			t.Errorf("expected album artist fallback, got %+v", tracks[1])
		}
	})

	t.Run("Rate Limit", func(t *testing.T) {
		server, _ := newSpotifyServer(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"name":"x","artists":[{"name":"y"}]}`)
		})
		svc, err := NewSpotifyService(context.Background(), SpotifyOpts{
			ClientID:     "id",
			ClientSecret: "secret",
			RateLimit:    100,
			HTTPClient:   server.Client(),
			BaseURL:      server.URL + "/v1",
			TokenURL:     server.URL + "/token",
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if svc.limiter == nil {
			t.Fatal("expected limiter to be configured")
		}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := svc.Track(ctx, "abc"); err == nil {
			t.Error("expected error for cancelled context")
		}
	})
}
