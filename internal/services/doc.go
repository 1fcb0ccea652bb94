// Package services talks to the outside world on behalf of the download engine.
//
// # Catalog
//
// [SpotifyService] reads track, playlist and album metadata from the Spotify Web API.
// It authenticates with the client-credentials grant; the [clientcredentials.Config] client
// fetches and refreshes the app token on demand, so no user login is involved.
// Playlist and album listings follow the "next" cursor until it is null.
//
// # Search
//
//   - [YTMusicService]: song-filtered YouTube Music search, the primary resolver backend
//   - [YouTubeService]: scraped generic video search, the fallback
//   - [YouTubeDataService]: Data API v3 fallback used when an API key is configured
//
// # Error Handling
//
// Services wrap typed errors from the shared package:
//   - [shared.ErrMissingCredentials] : credentials absent at construction
//   - [shared.ErrAPIRequest] : non-2xx response, see [StatusError]
//   - [shared.ErrTrackNotFound], [shared.ErrPlaylistNotFound] : 404 from the catalog
//   - [shared.ErrServiceUnavailable] : a search backend failed
package services
