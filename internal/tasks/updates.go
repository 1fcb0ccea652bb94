package tasks

import (
	"fmt"

	"github.com/desertthunder/tamer/internal/models"
)

// ProgressUpdate represents a progress event while a job runs.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchMetadata Phase = iota
	Queued
	ResolveTrack
	DownloadTrack
	TrackFailed
	DeliverFiles
	JobFinished
)

func (p Phase) String() string {
	switch p {
	case FetchMetadata:
		return "fetch_metadata"
	case Queued:
		return "queued"
	case ResolveTrack:
		return "resolve_track"
	case DownloadTrack:
		return "download_track"
	case TrackFailed:
		return "track_failed"
	case DeliverFiles:
		return "deliver_files"
	case JobFinished:
		return "job_finished"
	default:
		return ""
	}
}

func fetchMetadataUpdate(link models.Link) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchMetadata,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching %s %s...", link.Kind, link.ID),
		Data:    link,
	}
}

func queuedUpdate(job models.DownloadJob, ahead int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Queued,
		Step:    ahead,
		Total:   len(job.Tracks),
		Message: fmt.Sprintf("Queued job %s (%d ahead)", job.ID, ahead),
		Data:    job,
	}
}

func resolveTrackUpdate(step, total, attempt int, tr models.TrackRef) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveTrack,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Resolving %s (attempt %d)", step, total, tr, attempt),
		Data:    tr,
	}
}

func downloadTrackUpdate(step, total int, tr models.TrackRef, source string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadTrack,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Downloading %s from %s", step, total, tr, source),
		Data:    tr,
	}
}

func trackFailedUpdate(step, total int, outcome models.TrackOutcome) ProgressUpdate {
	return ProgressUpdate{
		Phase:   TrackFailed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, outcome.Track, outcome.Err),
		Data:    outcome,
	}
}

func deliverFilesUpdate(step, total int, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DeliverFiles,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Sending %s", step, total, path),
	}
}

func jobFinishedUpdate(result models.JobResult) ProgressUpdate {
	total := len(result.Outcomes)
	return ProgressUpdate{
		Phase:   JobFinished,
		Step:    total,
		Total:   total,
		Message: fmt.Sprintf("✓ %d of %d tracks delivered", result.Succeeded(), total),
		Data:    result,
	}
}
