package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Bitrate is an MP3 bitrate in kbps.
type Bitrate int

const (
	Bitrate128 Bitrate = 128
	Bitrate192 Bitrate = 192
	Bitrate256 Bitrate = 256
	Bitrate320 Bitrate = 320
)

// BitrateCallbackPrefix prefixes the callback data of every quality button.
const BitrateCallbackPrefix = "bitrate_"

// Bitrates lists the supported bitrates in ascending order.
func Bitrates() []Bitrate {
	return []Bitrate{Bitrate128, Bitrate192, Bitrate256, Bitrate320}
}

// Valid reports whether b is one of [Bitrates].
func (b Bitrate) Valid() bool {
	switch b {
	case Bitrate128, Bitrate192, Bitrate256, Bitrate320:
		return true
	}
	return false
}

// Label is the button caption, e.g. "192 Kbps".
func (b Bitrate) Label() string {
	return fmt.Sprintf("%d Kbps", int(b))
}

// CallbackData is the opaque payload attached to the button, e.g. "bitrate_192".
func (b Bitrate) CallbackData() string {
	return BitrateCallbackPrefix + strconv.Itoa(int(b))
}

// Quality is the value handed to the fetch backend, e.g. "192K".
func (b Bitrate) Quality() string {
	return strconv.Itoa(int(b)) + "K"
}

// ParseBitrate accepts either a bare number ("256") or callback data ("bitrate_256").
func ParseBitrate(s string) (Bitrate, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(s), BitrateCallbackPrefix))
	if err != nil {
		return 0, fmt.Errorf("invalid bitrate %q", s)
	}
	b := Bitrate(n)
	if !b.Valid() {
		return 0, fmt.Errorf("unsupported bitrate %d", n)
	}
	return b, nil
}

// Choice is one button of an inline keyboard.
type Choice struct {
	Label string
	Data  string
}

// BitrateChoices builds one [Choice] per supported bitrate.
func BitrateChoices() []Choice {
	choices := make([]Choice, 0, 4)
	for _, b := range Bitrates() {
		choices = append(choices, Choice{Label: b.Label(), Data: b.CallbackData()})
	}
	return choices
}

// JobKind distinguishes single-track jobs from collection jobs.
type JobKind int

const (
	JobTrack JobKind = iota
	JobCollection
)

func (k JobKind) String() string {
	if k == JobCollection {
		return "collection"
	}
	return "track"
}

// DownloadJob is a confirmed request. It is not mutated after it is enqueued.
type DownloadJob struct {
	ID             string
	ConversationID int64
	Kind           JobKind
	Title          string
	Tracks         []TrackRef
	Bitrate        Bitrate
	ReplyTo        int
	EnqueuedAt     time.Time
}

// TrackStatus is the terminal state of one track.
type TrackStatus string

const (
	TrackDownloaded TrackStatus = "downloaded"
	TrackFailed     TrackStatus = "failed"
)

// TrackOutcome records what happened to one track of a job.
type TrackOutcome struct {
	Track    TrackRef
	SourceID string
	Path     string
	Attempts int
	Err      error
}

// Status derives the terminal state from Err.
func (o TrackOutcome) Status() TrackStatus {
	if o.Err != nil {
		return TrackFailed
	}
	return TrackDownloaded
}

// JobState is the terminal state of a job.
type JobState string

const (
	JobCompleted       JobState = "completed"
	JobPartiallyFailed JobState = "partially_failed"
	JobFailed          JobState = "failed"
)

// JobResult summarises a finished job.
type JobResult struct {
	Job        DownloadJob
	Outcomes   []TrackOutcome
	FinishedAt time.Time
}

// Failed counts outcomes that carry an error.
func (r JobResult) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// Succeeded counts delivered files.
func (r JobResult) Succeeded() int {
	return len(r.Outcomes) - r.Failed()
}

// State reports completed, partially failed, or failed when nothing was produced.
func (r JobResult) State() JobState {
	switch failed := r.Failed(); {
	case failed == 0:
		return JobCompleted
	case failed == len(r.Outcomes):
		return JobFailed
	default:
		return JobPartiallyFailed
	}
}

// DownloadRecord is one persisted track outcome.
type DownloadRecord struct {
	ID             string      `json:"id"`
	Sequence       int         `json:"sequence"`
	JobID          string      `json:"job_id"`
	ConversationID int64       `json:"conversation_id"`
	Position       int         `json:"position"`
	Title          string      `json:"title"`
	Artist         string      `json:"artist"`
	Bitrate        Bitrate     `json:"bitrate"`
	SourceID       string      `json:"source_id,omitempty"`
	Status         TrackStatus `json:"status"`
	Attempts       int         `json:"attempts"`
	Error          string      `json:"error,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// JobRecord is one persisted finished job.
type JobRecord struct {
	ID             string    `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Kind           string    `json:"kind"`
	Title          string    `json:"title"`
	Bitrate        Bitrate   `json:"bitrate"`
	Total          int       `json:"total"`
	Failed         int       `json:"failed"`
	State          JobState  `json:"state"`
	EnqueuedAt     time.Time `json:"enqueued_at"`
	FinishedAt     time.Time `json:"finished_at"`
}
