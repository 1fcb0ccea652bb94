package tasks

import (
	"fmt"
	"strings"

	"github.com/desertthunder/tamer/internal/models"
)

const (
	msgUsage        = "Please send a Spotify playlist or track link in the format: /download playlist_or_track_link"
	msgInvalidLink  = "Please send a valid Spotify playlist or track link."
	msgQueued       = "Your request is in the queue. Please wait..."
	msgDownloading  = "Downloading tracks..."
	msgCompleted    = "Download completed!"
	msgNoPending    = "There is nothing waiting for a quality choice. Send /download with a link first."
	msgInProgress   = "Your previous request is still being processed. Please wait until it finishes."
	msgEmptyListing = "no tracks found"
)

const welcomeTemplate = `Hello %s!
I am a bot that can help you to download your public Spotify playlist/album/track in MP3 format.`

const noticeText = `⚠️ Important Notice ⚠️

This service is intended to allow users to download audio for personal use only. We recognize that in certain situations, accessing legal streaming services may be difficult due to regional restrictions, connectivity issues, or personal circumstances. However, we strongly encourage you to use the downloaded content responsibly and not to infringe upon copyright laws. We are not responsible for your actions.

For the best experience and to support your favorite artists, we recommend using official streaming platforms such as:

🎵 Spotify: https://www.spotify.com
🎵 Apple Music: https://www.apple.com/music/
🎵 YouTube Music: https://music.youtube.com
🎵 Amazon Music: https://music.amazon.com
🎵 Deezer: https://www.deezer.com

Remember, these platforms provide high-quality audio and legal access to a vast catalog of music. By choosing them, you are helping to ensure that creators are fairly compensated for their work.

Thank you for your understanding and cooperation!`

const usageText = `So, if you read my warning and still decide to download your playlist/album/track, send me a Spotify link like this:

/download playlist_link
/download album_link
/download track_link`

func welcomeMessage(firstName string) string {
	if firstName = strings.TrimSpace(firstName); firstName == "" {
		firstName = "there"
	}
	return fmt.Sprintf(welcomeTemplate, firstName)
}

func fetchingMessage(link models.Link) string {
	if link.Kind == models.LinkTrack {
		return fmt.Sprintf("Getting track from Spotify: %s...", link.ID)
	}
	return fmt.Sprintf("Getting playlist from Spotify: %s...", link.ID)
}

// trackListing renders the numbered list shown above the quality keyboard.
//
// A single track is shown without a number.
func trackListing(kind models.JobKind, tracks []models.TrackRef) string {
	if kind == models.JobTrack && len(tracks) == 1 {
		return fmt.Sprintf("%s - %s", tracks[0].Title, tracks[0].Artist)
	}
	lines := make([]string, len(tracks))
	for i, tr := range tracks {
		lines[i] = fmt.Sprintf("%d. %s - %s", i+1, tr.Title, tr.Artist)
	}
	return strings.Join(lines, "\n")
}

func chooseQualityMessage(kind models.JobKind, tracks []models.TrackRef) string {
	return trackListing(kind, tracks) + "\n\nChoose audio quality:"
}

func qualitySelectedMessage(kind models.JobKind, tracks []models.TrackRef, b models.Bitrate) string {
	return trackListing(kind, tracks) + fmt.Sprintf("\n\nYour audio quality: %d Kbps.", int(b))
}

func queuedMessage(ahead int) string {
	if ahead <= 0 {
		return msgQueued
	}
	return fmt.Sprintf("%s %d request(s) ahead of yours.", msgQueued, ahead)
}

func somethingWentWrongMessage(err error) string {
	return fmt.Sprintf("Something went wrong: %v", err)
}

func downloadingTrackMessage(tr models.TrackRef) string {
	return fmt.Sprintf("Downloading %s by %s...", tr.Title, tr.Artist)
}

func progressMessage(tr models.TrackRef, step, total int) string {
	return fmt.Sprintf("Downloading %s by %s...\n%d/%d", tr.Title, tr.Artist, step, total)
}

func skippedMessage(tr models.TrackRef) string {
	return fmt.Sprintf("Failed to download %s by %s. Skipping.", tr.Title, tr.Artist)
}

func trackFailedMessage(tr models.TrackRef) string {
	return fmt.Sprintf("Failed to download %s by %s.", tr.Title, tr.Artist)
}

func trackDoneMessage(tr models.TrackRef) string {
	return fmt.Sprintf("%s by %s downloaded successfully!", tr.Title, tr.Artist)
}

func collectionSummaryMessage(result models.JobResult) string {
	total := len(result.Outcomes)
	if result.Failed() == 0 {
		return fmt.Sprintf("All %d tracks downloaded successfully!", total)
	}
	return fmt.Sprintf("Downloaded %d of %d tracks. %d failed.", result.Succeeded(), total, result.Failed())
}
