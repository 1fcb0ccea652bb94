package tasks

import (
	"context"

	"github.com/desertthunder/tamer/internal/models"
)

// Catalog looks up track metadata behind a catalog link.
type Catalog interface {
	// Track returns the title and primary artist of a single track.
	Track(ctx context.Context, id string) (models.TrackRef, error)

	// PlaylistTracks returns the playlist name and its tracks in playlist order.
	PlaylistTracks(ctx context.Context, id string) (string, []models.TrackRef, error)

	// AlbumTracks returns the album name and its tracks in disc order.
	AlbumTracks(ctx context.Context, id string) (string, []models.TrackRef, error)
}

// PrimarySearch searches a music-specific index restricted to songs.
type PrimarySearch interface {
	SearchSongs(ctx context.Context, query string) ([]models.Candidate, error)
}

// SecondarySearch searches generic videos.
type SecondarySearch interface {
	SearchVideos(ctx context.Context, query string) ([]models.VideoResult, error)
}

// FetchBackend downloads and transcodes one source into the file described by spec.
type FetchBackend interface {
	Fetch(ctx context.Context, sourceURL string, spec models.OutputSpec) error
}

// Transport delivers messages and files to a conversation.
//
// Methods returning an int return the id of the message they created.
type Transport interface {
	// SendMessage posts a new message.
	SendMessage(ctx context.Context, conversationID int64, text string) (int, error)

	// ReplyTo posts a message quoting messageID.
	ReplyTo(ctx context.Context, conversationID int64, messageID int, text string) (int, error)

	// EditMessage replaces the text of an earlier message.
	EditMessage(ctx context.Context, conversationID int64, messageID int, text string) error

	// SendChoice posts text with one button per choice.
	SendChoice(ctx context.Context, conversationID int64, text string, choices []models.Choice) (int, error)

	// SendFile uploads the file at path.
	SendFile(ctx context.Context, conversationID int64, path string) error
}

// HistoryRecorder persists finished jobs. Failures are logged and never affect delivery.
type HistoryRecorder interface {
	RecordJob(ctx context.Context, result models.JobResult) error
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
